// Package automation drives the WhatsApp Web client: it locates controls,
// navigates between conversations, delivers text and image messages, and
// classifies each recipient's outcome. All UI access goes through Driver.
package automation

import (
	"context"
	"errors"
	"time"
)

// ErrSessionLost marks driver failures after which the browser session cannot
// be used again. Every other driver error is treated as a transient UI miss.
var ErrSessionLost = errors.New("automation: browser session lost")

// IsSessionLost reports whether err is session-fatal.
func IsSessionLost(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// Key is a keyboard action understood by a Driver.
type Key string

const (
	KeyEnter      Key = "Enter"
	KeyShiftEnter Key = "Shift+Enter"
	KeyEscape     Key = "Escape"
	KeyArrowDown  Key = "ArrowDown"
	KeySelectAll  Key = "SelectAll"
	KeyBackspace  Key = "Backspace"
)

// Driver is the live UI surface. Element arguments are XPath expressions;
// operations on an expression act on its first match unless stated otherwise.
type Driver interface {
	// Count returns how many elements match xpath.
	Count(ctx context.Context, xpath string) (int, error)
	// Visible reports whether the first match is rendered.
	Visible(ctx context.Context, xpath string) (bool, error)
	// Text returns the text content of the first match.
	Text(ctx context.Context, xpath string) (string, error)
	// Labels returns the accessible label (aria-label, title or text) of every match.
	Labels(ctx context.Context, xpath string) ([]string, error)
	// Click dispatches a DOM click on the first match.
	Click(ctx context.Context, xpath string) error
	// PointerClick moves the mouse to the first match and clicks it.
	PointerClick(ctx context.Context, xpath string) error
	// Focus gives the first match keyboard focus.
	Focus(ctx context.Context, xpath string) error
	// Press sends a key to the focused element.
	Press(ctx context.Context, key Key) error
	// InsertText injects text at the caret without synthesizing key events.
	InsertText(ctx context.Context, text string) error
	// SetFiles assigns local files to the first matching file input.
	SetFiles(ctx context.Context, xpath string, paths []string) error
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
}

const DefaultPollInterval = 250 * time.Millisecond

// Timings holds every bounded wait used by the engine.
type Timings struct {
	Poll          time.Duration
	Locate        time.Duration
	SearchSettle  time.Duration
	ResultWait    time.Duration
	ChatOpenWait  time.Duration
	MenuWait      time.Duration
	MediaWait     time.Duration
	PreviewWait   time.Duration
	CaptionWait   time.Duration
	ConfirmWait   time.Duration
	KeyGap        time.Duration
	EscapeRetries int
}

// DefaultTimings returns the waits tuned for a desktop WhatsApp Web session.
func DefaultTimings() Timings {
	return Timings{
		Poll:          DefaultPollInterval,
		Locate:        10 * time.Second,
		SearchSettle:  1200 * time.Millisecond,
		ResultWait:    5 * time.Second,
		ChatOpenWait:  5 * time.Second,
		MenuWait:      3 * time.Second,
		MediaWait:     3 * time.Second,
		PreviewWait:   10 * time.Second,
		CaptionWait:   8 * time.Second,
		ConfirmWait:   10 * time.Second,
		KeyGap:        200 * time.Millisecond,
		EscapeRetries: 4,
	}
}

// ScaledTimings returns DefaultTimings with Locate replaced by action, keeping the other
// waits proportional. A non-positive action returns the defaults.
func ScaledTimings(action time.Duration) Timings {
	t := DefaultTimings()
	if action <= 0 || action == t.Locate {
		return t
	}
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * float64(action) / float64(t.Locate))
	}
	t.ResultWait = scale(t.ResultWait)
	t.ChatOpenWait = scale(t.ChatOpenWait)
	t.MenuWait = scale(t.MenuWait)
	t.MediaWait = scale(t.MediaWait)
	t.PreviewWait = scale(t.PreviewWait)
	t.CaptionWait = scale(t.CaptionWait)
	t.ConfirmWait = scale(t.ConfirmWait)
	t.Locate = action
	return t
}

func (t Timings) wait(name string, timeout time.Duration) Wait {
	return Wait{Name: name, Timeout: timeout, Interval: t.Poll}
}
