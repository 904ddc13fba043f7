package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// maxListedFailures caps the failure list in the email body.
const maxListedFailures = 50

// ChooseSender picks the provider named by provider ("sendgrid", "ses", "log",
// or "auto" for the first configured one). Unconfigured choices fall back to logging.
func ChooseSender(provider string, sendgrid *SendGridSender, ses *SESSender, logger *logging.Logger) EmailSender {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "sendgrid":
		if sendgrid != nil {
			return sendgrid
		}
	case "ses":
		if ses != nil {
			return ses
		}
	case "log", "none":
	default:
		if sendgrid != nil {
			return sendgrid
		}
		if ses != nil {
			return ses
		}
	}
	return NewLogSender(logger)
}

// SummaryNotifier emails the run summary to the operator when a run ends.
type SummaryNotifier struct {
	campaign.NopObserver
	sender EmailSender
	to     string
	source string
	logger *logging.Logger
}

// NewSummaryNotifier builds a notifier for recipient list source.
func NewSummaryNotifier(sender EmailSender, to, source string, logger *logging.Logger) *SummaryNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &SummaryNotifier{sender: sender, to: to, source: source, logger: logger}
}

func (n *SummaryNotifier) CampaignFinished(ctx context.Context, s campaign.Summary) {
	if n.sender == nil || strings.TrimSpace(n.to) == "" {
		return
	}
	if err := n.sender.Send(ctx, SummaryEmail(n.to, n.source, s)); err != nil {
		n.logger.Warn("summary email failed", "run_id", s.RunID, "error", err)
	}
}

// SummaryEmail renders s as a plain-text email.
func SummaryEmail(to, source string, s campaign.Summary) EmailMessage {
	state := "completed"
	switch {
	case s.Aborted:
		state = "aborted"
	case s.Interrupted:
		state = "interrupted"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s %s.\n\n", s.RunID, state)
	if source != "" {
		fmt.Fprintf(&b, "Recipients file: %s\n", source)
	}
	fmt.Fprintf(&b, "Total recipients: %d (started at index %d)\n", s.Total, s.StartIndex)
	fmt.Fprintf(&b, "Attempted: %d\nSucceeded: %d\nFailed: %d\n", s.Attempted, s.Succeeded, s.Failed)
	fmt.Fprintf(&b, "Images sent: %d\nSent as text instead of image: %d\n", s.ImagesSent, s.TextFallbacks)
	if !s.FinishedAt.IsZero() && !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(1e9))
	}
	if !s.Complete() {
		fmt.Fprintf(&b, "\nTo resume, start from index %d.\n", s.NextIndex)
	}
	if len(s.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for i, f := range s.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "  ... and %d more\n", len(s.Failures)-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "  #%d (row %d) %s: %s\n", f.Index, f.Row, f.Identifier, f.Reason)
		}
	}

	return EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("WhatsApp campaign %s: %d/%d sent", state, s.Succeeded, s.Attempted),
		Body:    b.String(),
	}
}
