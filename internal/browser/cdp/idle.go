package cdp

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleTracker follows in-flight requests of one tab from network events.
type idleTracker struct {
	now func() time.Time

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	if now == nil {
		now = time.Now
	}
	return &idleTracker{
		now:      now,
		inflight: make(map[network.RequestID]struct{}),
		last:     now(),
	}
}

// handle is registered with chromedp.ListenTarget.
func (t *idleTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	t.inflight[id] = struct{}{}
	t.last = t.now()
	t.mu.Unlock()
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	if _, ok := t.inflight[id]; ok {
		delete(t.inflight, id)
		t.last = t.now()
	}
	t.mu.Unlock()
}

// touch marks activity without a request, e.g. a navigation being issued.
func (t *idleTracker) touch() {
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
}

// idle reports whether nothing has been in flight for at least quiet.
func (t *idleTracker) idle(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= quiet
}

// wait blocks until idle(quiet) holds or ctx is done.
func (t *idleTracker) wait(ctx context.Context, quiet, tick time.Duration) error {
	if t.idle(quiet) {
		return nil
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.idle(quiet) {
				return nil
			}
		}
	}
}
