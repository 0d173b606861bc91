// internal/browser/cdp/browser.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/ctxutil"
	"github.com/xkilldash9x/formcheck/internal/config"
)

// startupTimeout bounds how long Launch waits for Chrome to respond.
const startupTimeout = 30 * time.Second

// Browser is a Chrome process driven over the DevTools protocol.
type Browser struct {
	logger  *zap.Logger
	browser config.BrowserConfig
	network config.NetworkConfig

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Launch starts Chrome and waits until it accepts commands. The process
// lives until Close, independent of ctx's cancellation.
func Launch(ctx context.Context, bcfg config.BrowserConfig, ncfg config.NetworkConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Browser{
		logger:  logger.Named("chromedp"),
		browser: bcfg,
		network: ncfg,
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctxutil.Detach(ctx), AllocatorOptions(bcfg)...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithErrorf(b.logger.Sugar().Debugf),
	)

	// The first Run allocates the browser; its lifetime is bound to browserCtx, so
	// the startup deadline is enforced from outside.
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(b.browserCtx) }()

	timer := time.NewTimer(startupTimeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		if err != nil {
			b.cancel()
			return nil, fmt.Errorf("browser failed to start: %w", err)
		}
	case <-timer.C:
		b.cancel()
		return nil, fmt.Errorf("browser did not respond within %s", startupTimeout)
	case <-ctx.Done():
		b.cancel()
		return nil, ctx.Err()
	}

	b.logger.Info("Browser launched successfully and is responsive.", zap.Bool("headless", bcfg.Headless))
	return b, nil
}

// NewPage opens a tab in a fresh browser context so sessions share no cookies or storage.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())

	p := &Page{
		id:      uuid.NewString(),
		ctx:     tabCtx,
		cancel:  tabCancel,
		network: b.network,
		idle:    newIdleTracker(nil),
	}
	p.logger = b.logger.With(zap.String("session_id", p.id))
	chromedp.ListenTarget(tabCtx, p.idle.handle)

	setup := []chromedp.Action{network.Enable()}
	if vp := b.browser.Viewport; vp.Width > 0 && vp.Height > 0 {
		setup = append(setup, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)))
	}
	if len(b.network.Headers) > 0 {
		headers := make(network.Headers, len(b.network.Headers))
		for k, v := range b.network.Headers {
			headers[k] = v
		}
		setup = append(setup, network.SetExtraHTTPHeaders(headers))
	}

	// The first Run creates the target and must use the tab context itself.
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tabCtx, setup...) }()
	select {
	case err := <-errc:
		if err != nil {
			tabCancel()
			return nil, fmt.Errorf("failed to initialize tab: %w", err)
		}
	case <-ctx.Done():
		tabCancel()
		return nil, ctx.Err()
	}

	p.logger.Debug("Tab opened.")
	return p, nil
}

// Close shuts Chrome down gracefully, falling back to killing the process.
func (b *Browser) Close(ctx context.Context) error {
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		err = chromedp.Cancel(b.browserCtx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("Graceful browser close timed out.", zap.Error(ctx.Err()))
	}
	b.cancel()

	<-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.logger.Info("Browser closed.")
	return nil
}

func (b *Browser) cancel() {
	b.browserCancel()
	b.allocCancel()
}
