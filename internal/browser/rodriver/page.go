package rodriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/config"
)

// Page is a single rod page in its own incognito context.
type Page struct {
	id        string // session_id in logs
	page      *rod.Page
	incognito *rod.Browser
	network   config.NetworkConfig
	logger    *zap.Logger
}

// scoped returns the page bound to ctx and, when positive, timeout.
func (p *Page) scoped(ctx context.Context, timeout time.Duration) *rod.Page {
	pg := p.page.Context(ctx)
	if timeout > 0 {
		pg = pg.Timeout(timeout)
	}
	return pg
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.scoped(ctx, p.network.NavigationTimeout)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func (p *Page) WaitNetworkIdle(ctx context.Context) error {
	idleCtx := ctx
	if p.network.IdleTimeout > 0 {
		var cancel context.CancelFunc
		idleCtx, cancel = context.WithTimeout(ctx, p.network.IdleTimeout)
		defer cancel()
	}
	wait := p.page.Context(idleCtx).WaitRequestIdle(p.network.IdleQuietPeriod, nil, nil, nil)
	wait()
	if err := idleCtx.Err(); err != nil {
		return fmt.Errorf("network did not become idle: %w", err)
	}
	return nil
}

func (p *Page) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.scoped(ctx, p.network.ActionTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", selector, err)
	}
	return el, nil
}

func (p *Page) Fill(ctx context.Context, selector, text string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", selector, err)
	}
	return nil
}

// elements returns the current matches without waiting for any to appear.
func (p *Page) elements(ctx context.Context, selector string) (rod.Elements, error) {
	els, err := p.scoped(ctx, p.network.ActionTimeout).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	return els, nil
}

func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	els, err := p.elements(ctx, selector)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil {
			return false, fmt.Errorf("visibility check for %s failed: %w", selector, err)
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
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
	els, err := p.elements(ctx, selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		prop, err := el.Property("textContent")
		if err != nil {
			return nil, fmt.Errorf("failed to read text of %s: %w", selector, err)
		}
		texts = append(texts, prop.Str())
	}
	return texts, nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := p.scoped(ctx, p.network.ActionTimeout).Screenshot(fullPage, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return data, nil
}

// Close closes the page and disposes its incognito context.
func (p *Page) Close(_ context.Context) error {
	pageErr := p.page.Close()
	ctxErr := p.incognito.Close()
	if err := errors.Join(pageErr, ctxErr); err != nil {
		p.logger.Debug("Page close returned an error.", zap.Error(err))
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}
