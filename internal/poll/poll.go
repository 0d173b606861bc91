// Package poll provides a bounded, clock-injectable retry loop for waiting on
// page state that renders asynchronously.
package poll

import (
	"context"
	"time"
)

// Policy bounds a poll: at most Attempts checks, Interval apart.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// DefaultPolicy is three checks one second apart.
var DefaultPolicy = Policy{Attempts: 3, Interval: time.Second}

// Clock abstracts waiting so tests can run polls without real delays.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a timer.
type RealClock struct{}

// Sleep implements Clock.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Predicate reports whether the awaited condition holds.
type Predicate func(ctx context.Context) (bool, error)

// Until evaluates pred up to p.Attempts times, sleeping p.Interval between
// attempts but not after the last one. It returns true on the first success,
// false once attempts are exhausted, and the first error raised by pred or by
// the clock. A nil clock means RealClock.
func Until(ctx context.Context, p Policy, clock Clock, pred Predicate) (bool, error) {
	if clock == nil {
		clock = RealClock{}
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if i < attempts-1 {
			if err := clock.Sleep(ctx, p.Interval); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}
