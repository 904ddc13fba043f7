package campaign

import (
	"context"
	"time"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/internal/observability/metrics"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
)

// Start describes a run about to begin.
type Start struct {
	RunID      string
	Total      int
	StartIndex int
	StartedAt  time.Time
}

// Event is one recipient's outcome.
type Event struct {
	RunID   string
	Record  recipients.Record
	Outcome automation.Outcome
	At      time.Time
}

// Progress is emitted every Config.ProgressEvery attempted recipients.
type Progress struct {
	RunID     string
	Total     int
	Index     int
	Attempted int
	Succeeded int
	Failed    int
}

// Observer receives run events. Calls happen on the runner's goroutine, so
// implementations must not block for long.
type Observer interface {
	CampaignStarted(ctx context.Context, start Start)
	RecipientDone(ctx context.Context, ev Event)
	Progress(ctx context.Context, p Progress)
	CampaignFinished(ctx context.Context, summary Summary)
}

// NopObserver can be embedded to implement only some Observer methods.
type NopObserver struct{}

func (NopObserver) CampaignStarted(context.Context, Start)    {}
func (NopObserver) RecipientDone(context.Context, Event)      {}
func (NopObserver) Progress(context.Context, Progress)        {}
func (NopObserver) CampaignFinished(context.Context, Summary) {}

// MetricsObserver feeds run events into Prometheus.
type MetricsObserver struct {
	NopObserver
	metrics *metrics.CampaignMetrics
	total   int
	tally   Progress
}

func NewMetricsObserver(m *metrics.CampaignMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) CampaignStarted(_ context.Context, start Start) {
	o.total = start.Total
	o.tally = Progress{}
	o.metrics.SetProgress(o.total, 0, 0, 0)
}

func (o *MetricsObserver) RecipientDone(_ context.Context, ev Event) {
	out := ev.Outcome
	o.metrics.ObserveOutcome(string(out.Status), out.Reason, out.WithImage, out.Duration.Seconds())
	if out.ImageReason != "" {
		o.metrics.ObserveImageFallback(out.ImageReason)
	}
	o.tally.Attempted++
	if out.Succeeded() {
		o.tally.Succeeded++
	} else {
		o.tally.Failed++
	}
	o.metrics.SetProgress(o.total, o.tally.Attempted, o.tally.Succeeded, o.tally.Failed)
}
