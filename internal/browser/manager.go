// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/cdp"
	"github.com/xkilldash9x/formcheck/internal/browser/rodriver"
	"github.com/xkilldash9x/formcheck/internal/config"
)

// Manager handles the lifecycle of the browser process and the sessions opened in it.
type Manager struct {
	logger  *zap.Logger
	backend Backend
	name    string

	mu     sync.Mutex
	closed bool
	// wg tracks open sessions for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the backend named by cfg.Browser.Driver.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Browser.Driver))
	var backend Backend
	switch name {
	case "", config.DriverChromedp:
		name = config.DriverChromedp
		b, err := cdp.Launch(ctx, cfg.Browser, cfg.Network, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		backend = cdpBackend{b}
	case config.DriverRod:
		b, err := rodriver.Launch(ctx, cfg.Browser, cfg.Network, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		backend = rodBackend{b}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Browser.Driver)
	}

	m := NewManagerWithBackend(backend, logger)
	m.name = name
	m.logger.Info("Browser launched.", zap.String("driver", name))
	return m, nil
}

// NewManagerWithBackend wraps an already running backend.
func NewManagerWithBackend(backend Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:  logger.Named("browser_manager"),
		backend: backend,
		name:    "custom",
	}
}

// DriverName is the backend in use.
func (m *Manager) DriverName() string {
	return m.name
}

// NewSession opens a new isolated tab. The caller must Close it.
func (m *Manager) NewSession(ctx context.Context) (Driver, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	// Registered under the lock so Shutdown never races a late Add.
	m.wg.Add(1)
	m.mu.Unlock()

	d, err := m.backend.Open(ctx)
	if err != nil {
		m.wg.Done()
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	return &sessionWrapper{Driver: d, wg: &m.wg}, nil
}

// Shutdown waits for open sessions to close, bounded by ctx, then terminates the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if err := m.backend.Close(ctx); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// sessionWrapper decrements the manager's WaitGroup exactly once on Close.
type sessionWrapper struct {
	Driver
	wg     *sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

func (sw *sessionWrapper) Close(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}
	err := sw.Driver.Close(ctx)
	sw.closed = true
	sw.wg.Done()
	return err
}

type cdpBackend struct{ b *cdp.Browser }

func (c cdpBackend) Open(ctx context.Context) (Driver, error) {
	p, err := c.b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c cdpBackend) Close(ctx context.Context) error { return c.b.Close(ctx) }

type rodBackend struct{ b *rodriver.Browser }

func (r rodBackend) Open(ctx context.Context) (Driver, error) {
	p, err := r.b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r rodBackend) Close(ctx context.Context) error { return r.b.Close(ctx) }
