// Package journal persists campaign runs and per-recipient outcomes so that a
// run can be audited and resumed after the process exits.
package journal

import (
	"context"
	"time"

	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// Entry is one persisted recipient outcome.
type Entry struct {
	RunID       string    `json:"run_id"`
	Index       int       `json:"index"`
	Row         int       `json:"row"`
	Identifier  string    `json:"identifier"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	ImageReason string    `json:"image_reason,omitempty"`
	WithImage   bool      `json:"with_image"`
	DurationMS  int64     `json:"duration_ms"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func entryFromEvent(ev campaign.Event) Entry {
	return Entry{
		RunID:       ev.RunID,
		Index:       ev.Record.Index,
		Row:         ev.Record.Row,
		Identifier:  ev.Record.Identifier,
		Status:      string(ev.Outcome.Status),
		Reason:      ev.Outcome.Reason,
		ImageReason: ev.Outcome.ImageReason,
		WithImage:   ev.Outcome.WithImage,
		DurationMS:  ev.Outcome.Duration.Milliseconds(),
		RecordedAt:  ev.At.UTC(),
	}
}

// Journal stores run lifecycles.
type Journal interface {
	StartRun(ctx context.Context, start campaign.Start) error
	RecordOutcome(ctx context.Context, ev campaign.Event) error
	FinishRun(ctx context.Context, summary campaign.Summary) error
}

// Observer adapts a Journal to campaign events. Write failures are logged and
// never stop the run.
type Observer struct {
	campaign.NopObserver
	journal Journal
	logger  *logging.Logger
}

func NewObserver(j Journal, logger *logging.Logger) *Observer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Observer{journal: j, logger: logger}
}

func (o *Observer) CampaignStarted(ctx context.Context, start campaign.Start) {
	if err := o.journal.StartRun(ctx, start); err != nil {
		o.logger.Warn("journal start failed", "run_id", start.RunID, "error", err)
	}
}

func (o *Observer) RecipientDone(ctx context.Context, ev campaign.Event) {
	if err := o.journal.RecordOutcome(ctx, ev); err != nil {
		o.logger.Warn("journal write failed", "run_id", ev.RunID, "recipient", ev.Record.Identifier, "error", err)
	}
}

func (o *Observer) CampaignFinished(ctx context.Context, summary campaign.Summary) {
	if err := o.journal.FinishRun(ctx, summary); err != nil {
		o.logger.Warn("journal finish failed", "run_id", summary.RunID, "error", err)
	}
}

// Multi writes to every journal in order and returns the first error.
type Multi []Journal

func (m Multi) StartRun(ctx context.Context, start campaign.Start) error {
	var first error
	for _, j := range m {
		if err := j.StartRun(ctx, start); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) RecordOutcome(ctx context.Context, ev campaign.Event) error {
	var first error
	for _, j := range m {
		if err := j.RecordOutcome(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) FinishRun(ctx context.Context, summary campaign.Summary) error {
	var first error
	for _, j := range m {
		if err := j.FinishRun(ctx, summary); err != nil && first == nil {
			first = err
		}
	}
	return first
}
