package automation

import (
	"context"
	"fmt"
	"time"
)

// Control is a located element, addressed by the strategy that matched it.
type Control struct {
	Target   string
	XPath    string
	Strategy int
}

// Nth addresses the n-th (1-based) match of the control's expression.
func (c Control) Nth(n int) string {
	return fmt.Sprintf("(%s)[%d]", c.XPath, n)
}

// Locator resolves Targets against the live UI. It never checks whether a
// control is interactable, only that it exists (or is rendered, for LocateVisible).
type Locator struct {
	driver Driver
	clock  Clock
	poll   time.Duration
}

func NewLocator(driver Driver, clock Clock, poll time.Duration) *Locator {
	if clock == nil {
		clock = SystemClock{}
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Locator{driver: driver, clock: clock, poll: poll}
}

// Locate tries each strategy of target in order, splitting budget evenly among
// them, and returns the first hit. The error is non-nil only for session loss.
func (l *Locator) Locate(ctx context.Context, target Target, budget time.Duration) (Control, bool, error) {
	return l.locate(ctx, target, budget, false)
}

// LocateVisible is Locate but only accepts rendered elements.
func (l *Locator) LocateVisible(ctx context.Context, target Target, budget time.Duration) (Control, bool, error) {
	return l.locate(ctx, target, budget, true)
}

// Present is a single immediate check across all strategies of target.
func (l *Locator) Present(ctx context.Context, target Target) (bool, error) {
	_, found, err := l.locate(ctx, target, 0, true)
	return found, err
}

func (l *Locator) locate(ctx context.Context, target Target, budget time.Duration, visible bool) (Control, bool, error) {
	if len(target.Strategies) == 0 {
		return Control{}, false, nil
	}
	share := budget / time.Duration(len(target.Strategies))
	for i, xpath := range target.Strategies {
		wait := Wait{Name: target.Name, Timeout: share, Interval: l.poll}
		found, err := wait.Poll(ctx, l.clock, func() (bool, error) {
			return l.matches(ctx, xpath, visible)
		})
		if err != nil {
			return Control{}, false, err
		}
		if found {
			return Control{Target: target.Name, XPath: xpath, Strategy: i}, true, nil
		}
	}
	return Control{}, false, nil
}

func (l *Locator) matches(ctx context.Context, xpath string, visible bool) (bool, error) {
	n, err := l.driver.Count(ctx, xpath)
	if err != nil || n == 0 {
		return false, fatal(err)
	}
	if !visible {
		return true, nil
	}
	ok, err := l.driver.Visible(ctx, xpath)
	if err != nil {
		return false, fatal(err)
	}
	return ok, nil
}

// fatal keeps session loss and drops transient driver errors.
func fatal(err error) error {
	if IsSessionLost(err) {
		return err
	}
	return nil
}

// run executes driver calls in order and stops at the first failure. ok is
// false when any call failed; err is set only for session loss.
func run(calls ...func() error) (bool, error) {
	for _, call := range calls {
		if err := call(); err != nil {
			return false, fatal(err)
		}
	}
	return true, nil
}
