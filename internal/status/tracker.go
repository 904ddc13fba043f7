// Package status serves run health and live progress over HTTP.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
)

// Snapshot is the JSON body of /progress.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	State         string    `json:"state"`
	Total         int       `json:"total"`
	StartIndex    int       `json:"start_index"`
	CurrentIndex  int       `json:"current_index"`
	Attempted     int       `json:"attempted"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	TextFallbacks int       `json:"text_fallbacks"`
	LastReason    string    `json:"last_reason,omitempty"`
	NextIndex     int       `json:"next_index"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

const (
	StateIdle        = "idle"
	StateRunning     = "running"
	StateCompleted   = "completed"
	StateInterrupted = "interrupted"
	StateAborted     = "aborted"
)

// Tracker keeps the latest run state for the status endpoint.
type Tracker struct {
	campaign.NopObserver

	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: StateIdle}, now: time.Now}
}

func (t *Tracker) CampaignStarted(_ context.Context, start campaign.Start) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{
		RunID:        start.RunID,
		State:        StateRunning,
		Total:        start.Total,
		StartIndex:   start.StartIndex,
		CurrentIndex: start.StartIndex,
		NextIndex:    start.StartIndex,
		StartedAt:    start.StartedAt,
		UpdatedAt:    t.now(),
	}
}

func (t *Tracker) RecipientDone(_ context.Context, ev campaign.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CurrentIndex = ev.Record.Index
	t.snap.NextIndex = ev.Record.Index + 1
	t.snap.Attempted++
	if ev.Outcome.Succeeded() {
		t.snap.Succeeded++
	} else {
		t.snap.Failed++
	}
	if ev.Outcome.ImageReason != "" {
		t.snap.TextFallbacks++
	}
	t.snap.LastReason = ev.Outcome.Reason
	t.snap.UpdatedAt = t.now()
}

func (t *Tracker) CampaignFinished(_ context.Context, s campaign.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = StateCompleted
	switch {
	case s.Aborted:
		t.snap.State = StateAborted
	case s.Interrupted:
		t.snap.State = StateInterrupted
	}
	t.snap.Attempted = s.Attempted
	t.snap.Succeeded = s.Succeeded
	t.snap.Failed = s.Failed
	t.snap.TextFallbacks = s.TextFallbacks
	t.snap.NextIndex = s.NextIndex
	t.snap.UpdatedAt = t.now()
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
