package automation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

var dispatchTracer = otel.Tracer("wacampaign.internal.automation.dispatch")

// OutcomeStatus is the final classification of one recipient.
type OutcomeStatus string

const (
	StatusSent             OutcomeStatus = "sent"
	StatusSentTextFallback OutcomeStatus = "sent_text_fallback"
	StatusFailed           OutcomeStatus = "failed"
)

const ReasonContactNotFound = "contact_not_found"

// Outcome is what happened to one recipient. Reason is set unless Status is
// StatusSent; ImageReason records why an image was abandoned for text.
type Outcome struct {
	Status      OutcomeStatus
	Reason      string
	ImageReason string
	WithImage   bool
	Duration    time.Duration
}

// Decided reports whether the outcome was classified before any abort.
func (o Outcome) Decided() bool { return o.Status != "" }

// Succeeded reports whether the recipient received a message.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSent || o.Status == StatusSentTextFallback
}

// Dispatcher runs the per-recipient flow over one browser session.
type Dispatcher struct {
	nav    *Navigator
	text   *TextSender
	image  *ImageSender
	clock  Clock
	logger *logging.Logger
}

// NewDispatcher wires navigator and senders over driver.
func NewDispatcher(driver Driver, clock Clock, timings Timings, logger *logging.Logger) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		nav:    NewNavigator(driver, clock, timings, logger),
		text:   NewTextSender(driver, clock, timings, logger),
		image:  NewImageSender(driver, clock, timings, logger),
		clock:  clock,
		logger: logger,
	}
}

// WithHomeURL overrides the WhatsApp Web address.
func (d *Dispatcher) WithHomeURL(url string) *Dispatcher {
	d.nav.WithHomeURL(url)
	return d
}

// Navigator exposes the dispatcher's navigator.
func (d *Dispatcher) Navigator() *Navigator { return d.nav }

// Dispatch delivers rec's message, with imagePath attached when non-empty, then
// waits delay unless the contact was not found. UI steps ignore cancellation of
// ctx; only the delay observes it. A returned error is either session loss or
// the ctx error from an interrupted delay, in which case the outcome is still decided.
func (d *Dispatcher) Dispatch(ctx context.Context, rec recipients.Record, imagePath string, delay time.Duration) (Outcome, error) {
	steps := context.WithoutCancel(ctx)
	steps, span := dispatchTracer.Start(steps, "automation.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("campaign.index", rec.Index),
		attribute.Bool("campaign.with_image", imagePath != ""),
	)

	started := d.clock.Now()
	log := d.logger.With("recipient", rec.Identifier, "index", rec.Index)

	if ok, err := d.nav.EnsureMainList(steps); err != nil {
		return d.abort(span, err)
	} else if !ok {
		log.Warn("starting from an unclean view")
	}

	outcome, err := d.deliver(steps, log, rec, imagePath)
	if err != nil {
		return d.abort(span, err)
	}

	var waitErr error
	if outcome.Reason != ReasonContactNotFound && delay > 0 {
		waitErr = d.clock.Sleep(ctx, delay)
	}

	if _, err := d.nav.EnsureMainList(steps); err != nil {
		outcome.Duration = d.clock.Now().Sub(started)
		span.RecordError(err)
		span.SetStatus(codes.Error, "session lost after delivery")
		return outcome, fmt.Errorf("automation: return to chat list: %w", err)
	}

	outcome.Duration = d.clock.Now().Sub(started)
	span.SetAttributes(
		attribute.String("campaign.status", string(outcome.Status)),
		attribute.String("campaign.reason", outcome.Reason),
	)
	return outcome, waitErr
}

func (d *Dispatcher) deliver(ctx context.Context, log *logging.Logger, rec recipients.Record, imagePath string) (Outcome, error) {
	opened, err := d.nav.OpenConversation(ctx, rec.Identifier)
	if err != nil {
		return Outcome{}, err
	}
	switch opened.Status {
	case ContactNotFound:
		log.Warn("contact not found")
		return Outcome{Status: StatusFailed, Reason: ReasonContactNotFound}, nil
	case Unavailable:
		log.Warn("conversation unavailable", "reason", opened.Reason)
		return Outcome{Status: StatusFailed, Reason: opened.Reason}, nil
	}

	message := rec.EffectiveMessage()
	var outcome Outcome
	if imagePath != "" {
		outcome.WithImage = true
		res, err := d.image.SendImageWithCaption(ctx, imagePath, message)
		if err != nil {
			return Outcome{}, err
		}
		if res.Delivered {
			log.Info("image sent")
			outcome.Status = StatusSent
			return outcome, nil
		}
		log.Warn("image failed, sending text", "reason", res.Reason)
		outcome.ImageReason = res.Reason
	}

	res, err := d.text.SendText(ctx, message)
	if err != nil {
		return Outcome{}, err
	}
	switch {
	case !res.Delivered:
		log.Warn("text failed", "reason", res.Reason)
		outcome.Status, outcome.Reason = StatusFailed, res.Reason
	case outcome.ImageReason != "":
		log.Info("text sent in place of image")
		outcome.Status, outcome.Reason = StatusSentTextFallback, outcome.ImageReason
	default:
		log.Info("text sent")
		outcome.Status = StatusSent
	}
	return outcome, nil
}

func (d *Dispatcher) abort(span trace.Span, err error) (Outcome, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "session lost")
	return Outcome{}, fmt.Errorf("automation: dispatch: %w", err)
}
