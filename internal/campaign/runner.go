// Package campaign runs a bulk delivery over a recipient list.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/internal/images"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

var runTracer = otel.Tracer("wacampaign.internal.campaign.runner")

// Dispatcher delivers to a single recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec recipients.Record, imagePath string, delay time.Duration) (automation.Outcome, error)
}

// ImageResolver chooses the image for a recipient.
type ImageResolver interface {
	Resolve(ctx context.Context, rec recipients.Record) images.Resolution
}

// Config is fixed for the lifetime of a Runner.
type Config struct {
	StartIndex    int
	Delay         time.Duration
	ProgressEvery int
	TextOnly      bool
}

// Failure identifies a recipient that did not receive a message.
type Failure struct {
	Index      int    `json:"index"`
	Row        int    `json:"row"`
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// Summary is the result of a run. Attempted always equals Succeeded + Failed.
type Summary struct {
	RunID         string    `json:"run_id"`
	Total         int       `json:"total"`
	StartIndex    int       `json:"start_index"`
	Attempted     int       `json:"attempted"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	ImagesSent    int       `json:"images_sent"`
	TextFallbacks int       `json:"text_fallbacks"`
	Failures      []Failure `json:"failures,omitempty"`
	NextIndex     int       `json:"next_index"`
	Aborted       bool      `json:"aborted"`
	Interrupted   bool      `json:"interrupted"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Complete reports whether every recipient from StartIndex on was attempted.
func (s Summary) Complete() bool {
	return !s.Aborted && !s.Interrupted && s.NextIndex >= s.Total
}

// Runner iterates recipients sequentially through a Dispatcher.
type Runner struct {
	cfg        Config
	dispatcher Dispatcher
	resolver   ImageResolver
	observers  []Observer
	logger     *logging.Logger
	runID      string
	now        func() time.Time
}

func NewRunner(cfg Config, dispatcher Dispatcher, resolver ImageResolver, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10
	}
	if cfg.StartIndex < 0 {
		cfg.StartIndex = 0
	}
	return &Runner{
		cfg:        cfg,
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger,
		runID:      uuid.NewString(),
		now:        time.Now,
	}
}

// WithObservers adds observers notified of run events, in order.
func (r *Runner) WithObservers(observers ...Observer) *Runner {
	for _, o := range observers {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
	return r
}

// WithRunID overrides the generated run id.
func (r *Runner) WithRunID(id string) *Runner {
	if id != "" {
		r.runID = id
	}
	return r
}

// RunID returns the id stamped on every event of this runner.
func (r *Runner) RunID() string { return r.runID }

// Run delivers to recs[StartIndex:]. Cancelling ctx stops the run between
// recipients (or during the delay) and yields a partial summary flagged
// Interrupted with a nil error. Session loss aborts with ErrSessionLost.
func (r *Runner) Run(ctx context.Context, recs []recipients.Record) (Summary, error) {
	ctx, span := runTracer.Start(ctx, "campaign.run")
	defer span.End()

	start := min(r.cfg.StartIndex, len(recs))
	summary := Summary{
		RunID:      r.runID,
		Total:      len(recs),
		StartIndex: start,
		NextIndex:  start,
		StartedAt:  r.now(),
	}
	span.SetAttributes(
		attribute.String("campaign.run_id", r.runID),
		attribute.Int("campaign.total", len(recs)),
		attribute.Int("campaign.start_index", start),
	)

	log := r.logger.With("run_id", r.runID)
	log.Info("campaign started", "total", len(recs), "start_index", start, "delay", r.cfg.Delay.String(), "text_only", r.cfg.TextOnly)
	r.each(func(o Observer) { o.CampaignStarted(ctx, Start{RunID: r.runID, Total: len(recs), StartIndex: start, StartedAt: summary.StartedAt}) })

	var runErr error
	for i := start; i < len(recs); i++ {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		rec := recs[i]
		rec.Index = i

		imagePath := r.resolveImage(ctx, log, rec)
		outcome, err := r.dispatcher.Dispatch(ctx, rec, imagePath, r.cfg.Delay)
		if outcome.Decided() {
			r.record(ctx, log, &summary, rec, outcome)
			summary.NextIndex = i + 1
			if summary.Attempted%r.cfg.ProgressEvery == 0 {
				p := Progress{RunID: r.runID, Total: len(recs), Index: i, Attempted: summary.Attempted, Succeeded: summary.Succeeded, Failed: summary.Failed}
				log.Info("campaign progress", "attempted", p.Attempted, "succeeded", p.Succeeded, "failed", p.Failed, "remaining", len(recs)-summary.NextIndex)
				r.each(func(o Observer) { o.Progress(context.WithoutCancel(ctx), p) })
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			summary.Interrupted = true
			break
		}
		summary.Aborted = true
		runErr = fmt.Errorf("campaign: recipient %d (%s): %w", i, rec.Identifier, err)
		if !automation.IsSessionLost(err) {
			runErr = fmt.Errorf("campaign: recipient %d (%s): %w: %w", i, rec.Identifier, automation.ErrSessionLost, err)
		}
		break
	}

	summary.FinishedAt = r.now()
	switch {
	case runErr != nil:
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "session lost")
		log.Error("campaign aborted", "error", runErr, "next_index", summary.NextIndex)
	case summary.Interrupted:
		log.Warn("campaign interrupted", "next_index", summary.NextIndex)
	default:
		log.Info("campaign finished", "attempted", summary.Attempted, "succeeded", summary.Succeeded, "failed", summary.Failed)
	}
	span.SetAttributes(
		attribute.Int("campaign.attempted", summary.Attempted),
		attribute.Int("campaign.succeeded", summary.Succeeded),
		attribute.Int("campaign.failed", summary.Failed),
	)
	final := summary
	r.each(func(o Observer) { o.CampaignFinished(context.WithoutCancel(ctx), final) })
	return summary, runErr
}

func (r *Runner) resolveImage(ctx context.Context, log *logging.Logger, rec recipients.Record) string {
	if r.cfg.TextOnly || r.resolver == nil {
		return ""
	}
	res := r.resolver.Resolve(ctx, rec)
	for _, missing := range res.Missing {
		log.Warn("image_missing", "recipient", rec.Identifier, "path", missing)
	}
	if res.Found() {
		log.Debug("image resolved", "recipient", rec.Identifier, "path", res.Path, "source", string(res.Source))
	}
	return res.Path
}

func (r *Runner) record(ctx context.Context, log *logging.Logger, summary *Summary, rec recipients.Record, outcome automation.Outcome) {
	summary.Attempted++
	if outcome.Succeeded() {
		summary.Succeeded++
	} else {
		summary.Failed++
		summary.Failures = append(summary.Failures, Failure{
			Index:      rec.Index,
			Row:        rec.Row,
			Identifier: rec.Identifier,
			Reason:     outcome.Reason,
		})
	}
	switch {
	case outcome.Status == automation.StatusSentTextFallback:
		summary.TextFallbacks++
	case outcome.Status == automation.StatusSent && outcome.WithImage:
		summary.ImagesSent++
	}

	log.Info("recipient done",
		"index", rec.Index,
		"recipient", rec.Identifier,
		"status", string(outcome.Status),
		"reason", outcome.Reason,
		"duration", outcome.Duration.String(),
	)
	ev := Event{RunID: r.runID, Record: rec, Outcome: outcome, At: r.now()}
	r.each(func(o Observer) { o.RecipientDone(context.WithoutCancel(ctx), ev) })
}

func (r *Runner) each(fn func(Observer)) {
	for _, o := range r.observers {
		fn(o)
	}
}
