// internal/browser/cdp/page.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/ctxutil"
	"github.com/xkilldash9x/formcheck/internal/config"
)

const idlePollInterval = 50 * time.Millisecond

// visibilityProbe reports whether any match has a box and is not hidden by style.
const visibilityProbe = `(sel => {
	for (const el of document.querySelectorAll(sel)) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const s = window.getComputedStyle(el);
		if (s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0') continue;
		return true;
	}
	return false;
})(%s)`

const textProbe = `(sel => Array.from(document.querySelectorAll(sel), el => el.textContent || ''))(%s)`

// Page is a single chromedp tab.
type Page struct {
	id      string // session_id in logs
	ctx     context.Context
	cancel  context.CancelFunc
	network config.NetworkConfig
	idle    *idleTracker
	logger  *zap.Logger
}

func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := ctxutil.WithTimeout(p.ctx, ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.idle.touch()
	if err := p.run(ctx, p.network.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) WaitNetworkIdle(ctx context.Context) error {
	opCtx, cancel := ctxutil.WithTimeout(p.ctx, ctx, p.network.IdleTimeout)
	defer cancel()
	if err := p.idle.wait(opCtx, p.network.IdleQuietPeriod, idlePollInterval); err != nil {
		return fmt.Errorf("network did not become idle: %w", err)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, text string) error {
	err := p.run(ctx, p.network.ActionTimeout,
		chromedp.Clear(selector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.SendKeys(selector, text, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.network.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.network.ActionTimeout, chromedp.ScrollIntoView(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", selector, err)
	}
	return nil
}

// IsVisible evaluates the probe once; a missing element is simply not visible.
func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	expr, err := probe(visibilityProbe, selector)
	if err != nil {
		return false, err
	}
	var visible bool
	if err := p.run(ctx, p.network.ActionTimeout, chromedp.Evaluate(expr, &visible)); err != nil {
		return false, fmt.Errorf("visibility check for %s failed: %w", selector, err)
	}
	return visible, nil
}

func (p *Page) TextContent(ctx context.Context, selector string) (string, error) {
	texts, err := p.AllTextContents(ctx, selector)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("no element matches %s", selector)
	}
	return texts[0], nil
}

func (p *Page) AllTextContents(ctx context.Context, selector string) ([]string, error) {
	expr, err := probe(textProbe, selector)
	if err != nil {
		return nil, err
	}
	var texts []string
	if err := p.run(ctx, p.network.ActionTimeout, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, fmt.Errorf("failed to read text of %s: %w", selector, err)
	}
	return texts, nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 keeps the output PNG.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, p.network.ActionTimeout, action); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab and disposes its browser context.
func (p *Page) Close(ctx context.Context) error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Debug("Tab close returned an error.", zap.Error(err))
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

// probe embeds selector into a probe script as a JSON string literal.
func probe(script, selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", fmt.Errorf("failed to encode selector: %w", err)
	}
	return fmt.Sprintf(script, quoted), nil
}
