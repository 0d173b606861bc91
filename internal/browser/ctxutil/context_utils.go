// internal/browser/ctxutil/context_utils.go
package ctxutil

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values and deadline of
// session (the long-lived browser tab context) and is canceled as soon as
// either session or op is done. When op ends first, context.Cause reports
// op's error.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(session)
	stop := context.AfterFunc(op, func() {
		cancel(op.Err())
	})
	return combined, func() {
		stop()
		cancel(context.Canceled)
	}
}

// WithTimeout combines session and op, then bounds the result by d. A
// non-positive d adds no bound.
func WithTimeout(session, op context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := CombineContext(session, op)
	if d <= 0 {
		return combined, cancelCombined
	}
	bounded, cancelBounded := context.WithTimeout(combined, d)
	return bounded, func() {
		cancelBounded()
		cancelCombined()
	}
}

// Detach returns a context that keeps ctx's values but ignores its
// cancellation and deadline. Cleanup that must outlive a canceled run uses it.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
