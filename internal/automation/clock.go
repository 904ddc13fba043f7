package automation

import (
	"context"
	"time"
)

// Clock abstracts time so that every wait in the engine is driven by one source.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait is a named, bounded poll.
type Wait struct {
	Name     string
	Timeout  time.Duration
	Interval time.Duration
}

// Poll evaluates cond until it returns true or the timeout elapses. cond is
// always evaluated at least once. A non-nil error from cond or from the clock
// stops polling and is returned as is.
func (w Wait) Poll(ctx context.Context, clock Clock, cond func() (bool, error)) (bool, error) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := clock.Now().Add(w.Timeout)
	for {
		ok, err := cond()
		if err != nil || ok {
			return ok, err
		}
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return false, nil
		}
		if err := clock.Sleep(ctx, min(interval, remaining)); err != nil {
			return false, err
		}
	}
}
