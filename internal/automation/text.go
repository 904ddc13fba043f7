package automation

import (
	"context"
	"strings"

	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// Result is the outcome of a single delivery attempt. Reason is set when not delivered.
type Result struct {
	Delivered bool
	Reason    string
}

func delivered() Result { return Result{Delivered: true} }

func failed(reason string) Result { return Result{Reason: reason} }

func (r Result) String() string {
	if r.Delivered {
		return "delivered"
	}
	return "failed: " + r.Reason
}

const (
	ReasonNoOpenChat   = "no_open_chat"
	ReasonEmptyMessage = "empty_message"
	ReasonUnconfirmed  = "unconfirmed"
)

// TextSender types and submits plain messages into the open conversation.
type TextSender struct {
	driver  Driver
	locator *Locator
	clock   Clock
	timings Timings
	logger  *logging.Logger
}

func NewTextSender(driver Driver, clock Clock, timings Timings, logger *logging.Logger) *TextSender {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TextSender{
		driver:  driver,
		locator: NewLocator(driver, clock, timings.Poll),
		clock:   clock,
		timings: timings,
		logger:  logger,
	}
}

// SendText delivers message. Line breaks become Shift+Enter so the message is
// sent once, as a whole. It does not retry.
func (s *TextSender) SendText(ctx context.Context, message string) (Result, error) {
	box, found, err := s.locator.LocateVisible(ctx, MessageBox, s.timings.ChatOpenWait)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return failed(ReasonNoOpenChat), nil
	}
	if strings.TrimSpace(message) == "" {
		return failed(ReasonEmptyMessage), nil
	}

	ok, err := run(
		func() error { return s.driver.Focus(ctx, box.XPath) },
		func() error { return typeLines(ctx, s.driver, message) },
		func() error { return s.driver.Press(ctx, KeyEnter) },
	)
	if err != nil {
		return Result{}, err
	}
	if ok {
		ok, err = s.timings.wait("text_sent", s.timings.ConfirmWait).Poll(ctx, s.clock, func() (bool, error) {
			return boxEmpty(ctx, s.driver, box.XPath)
		})
		if err != nil {
			return Result{}, err
		}
	}
	if !ok {
		s.logger.Warn("text send not confirmed")
		// Leave no draft behind for the next visit to this conversation.
		if _, err := run(
			func() error { return s.driver.Focus(ctx, box.XPath) },
			func() error { return s.driver.Press(ctx, KeySelectAll) },
			func() error { return s.driver.Press(ctx, KeyBackspace) },
		); err != nil {
			return Result{}, err
		}
		return failed(ReasonUnconfirmed), nil
	}
	return delivered(), nil
}

// typeLines inserts text segment by segment with Shift+Enter between them.
func typeLines(ctx context.Context, driver Driver, text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			if err := driver.Press(ctx, KeyShiftEnter); err != nil {
				return err
			}
		}
		if line == "" {
			continue
		}
		if err := driver.InsertText(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func boxEmpty(ctx context.Context, driver Driver, xpath string) (bool, error) {
	text, err := driver.Text(ctx, xpath)
	if err != nil {
		return false, fatal(err)
	}
	return strings.TrimSpace(text) == "", nil
}
