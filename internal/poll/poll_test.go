package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock records requested sleeps instead of waiting.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

// countingPredicate succeeds on the n-th call (1-based); n <= 0 never succeeds.
func countingPredicate(n int) (Predicate, *int) {
	calls := 0
	return func(context.Context) (bool, error) {
		calls++
		return n > 0 && calls >= n, nil
	}, &calls
}

func TestUntil_SucceedsImmediately(t *testing.T) {
	clock := &fakeClock{}
	pred, calls := countingPredicate(1)

	ok, err := Until(context.Background(), Policy{Attempts: 3, Interval: time.Second}, clock, pred)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, clock.sleeps)
}

func TestUntil_SucceedsOnLastAttempt(t *testing.T) {
	clock := &fakeClock{}
	pred, calls := countingPredicate(3)

	ok, err := Until(context.Background(), Policy{Attempts: 3, Interval: 250 * time.Millisecond}, clock, pred)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, clock.sleeps)
}

func TestUntil_Exhausted(t *testing.T) {
	clock := &fakeClock{}
	pred, calls := countingPredicate(0)

	ok, err := Until(context.Background(), Policy{Attempts: 4, Interval: time.Second}, clock, pred)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, *calls)
	assert.Len(t, clock.sleeps, 3, "no sleep after the final attempt")
}

func TestUntil_NonPositiveAttemptsRunsOnce(t *testing.T) {
	clock := &fakeClock{}
	pred, calls := countingPredicate(0)

	ok, err := Until(context.Background(), Policy{Attempts: 0}, clock, pred)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, *calls)
}

func TestUntil_PredicateErrorStopsPolling(t *testing.T) {
	clock := &fakeClock{}
	boom := errors.New("node detached")
	calls := 0

	ok, err := Until(context.Background(), DefaultPolicy, clock, func(context.Context) (bool, error) {
		calls++
		return false, boom
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestUntil_ClockErrorStopsPolling(t *testing.T) {
	clock := &fakeClock{err: context.DeadlineExceeded}
	pred, calls := countingPredicate(0)

	ok, err := Until(context.Background(), DefaultPolicy, clock, pred)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, *calls)
}

func TestUntil_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pred, calls := countingPredicate(1)

	ok, err := Until(ctx, DefaultPolicy, &fakeClock{}, pred)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, *calls)
}

func TestRealClock_Sleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, RealClock{}.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealClock{}.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, RealClock{}.Sleep(ctx, 0), context.Canceled)
}
