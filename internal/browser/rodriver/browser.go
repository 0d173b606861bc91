// internal/browser/rodriver/browser.go
package rodriver

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/ctxutil"
	"github.com/xkilldash9x/formcheck/internal/config"
)

// Browser is a Chrome process driven by go-rod.
type Browser struct {
	logger   *zap.Logger
	browser  config.BrowserConfig
	network  config.NetworkConfig
	launcher *launcher.Launcher
	rod      *rod.Browser
}

// NewLauncher builds the launcher for cfg without starting it.
func NewLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		l = l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height))
	}
	if cfg.IgnoreTLSErrors {
		l = l.Set(flags.Flag("ignore-certificate-errors"))
	}
	for _, raw := range cfg.Args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if name == "" {
			continue
		}
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	if runtime.GOOS == "linux" {
		l = l.NoSandbox(true).Set(flags.Flag("disable-dev-shm-usage"))
	}
	return l
}

// Launch starts Chrome and connects to it. The process lives until Close.
func Launch(ctx context.Context, bcfg config.BrowserConfig, ncfg config.NetworkConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Browser{
		logger:   logger.Named("rod"),
		browser:  bcfg,
		network:  ncfg,
		launcher: NewLauncher(bcfg),
	}

	controlURL, err := b.launcher.Context(ctxutil.Detach(ctx)).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	// The connection must outlive the caller's context; pages scope their own calls.
	rb := rod.New().ControlURL(controlURL).Context(ctxutil.Detach(ctx))
	if err := rb.Connect(); err != nil {
		b.launcher.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	if bcfg.IgnoreTLSErrors {
		if err := rb.IgnoreCertErrors(true); err != nil {
			b.logger.Warn("Failed to ignore certificate errors.", zap.Error(err))
		}
	}
	b.rod = rb

	b.logger.Info("Browser launched successfully and is responsive.", zap.Bool("headless", bcfg.Headless))
	return b, nil
}

// NewPage opens a page in a fresh incognito context.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	incognito, err := b.rod.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Rebind to the browser's long-lived context; ctx only scoped creation.
	page = page.Context(b.rod.GetContext())

	p := &Page{
		id:        uuid.NewString(),
		page:      page,
		incognito: incognito,
		network:   b.network,
	}
	p.logger = b.logger.With(zap.String("session_id", p.id))

	if vp := b.browser.Viewport; vp.Width > 0 && vp.Height > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1.0,
		}).Call(page); err != nil {
			p.logger.Warn("Failed to set viewport.", zap.Error(err))
		}
	}
	if len(b.network.Headers) > 0 {
		dict := make([]string, 0, 2*len(b.network.Headers))
		for k, v := range b.network.Headers {
			dict = append(dict, k, v)
		}
		if _, err := page.SetExtraHeaders(dict); err != nil {
			_ = p.Close(ctx)
			return nil, fmt.Errorf("set extra headers: %w", err)
		}
	}

	p.logger.Debug("Page opened.")
	return p, nil
}

// Close closes the connection and kills the process.
func (b *Browser) Close(_ context.Context) error {
	var err error
	if b.rod != nil {
		err = b.rod.Close()
	}
	b.launcher.Kill()
	b.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	b.logger.Info("Browser closed.")
	return nil
}
