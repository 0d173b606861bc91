// internal/pages/base.go
package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser"
	"github.com/xkilldash9x/formcheck/internal/screenshot"
)

// BasePage holds what every page object needs: the driver of its session, the
// run's screenshot store and the id of the test driving it.
type BasePage struct {
	Driver browser.Driver
	Shots  *screenshot.Store
	TestID string
	Logger *zap.Logger
}

// NewBasePage creates a BasePage. A nil store disables screenshots.
func NewBasePage(d browser.Driver, shots *screenshot.Store, testID string, logger *zap.Logger) BasePage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BasePage{
		Driver: d,
		Shots:  shots,
		TestID: testID,
		Logger: logger.With(zap.String("test_id", testID)),
	}
}

// Goto navigates and waits for the network to settle. A page that never goes
// idle (long polling, analytics beacons) is logged and tolerated.
func (p *BasePage) Goto(ctx context.Context, url string) error {
	p.Logger.Debug("Navigating.", zap.String("url", url))
	if err := p.Driver.Navigate(ctx, url); err != nil {
		return err
	}
	if err := p.Driver.WaitNetworkIdle(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.Logger.Warn("Network did not settle after navigation.", zap.String("url", url), zap.Error(err))
	}
	return nil
}

// Capture saves a best-effort screenshot and returns its path, or "" when none was written.
func (p *BasePage) Capture(ctx context.Context, status screenshot.Status, step, info string) string {
	return p.Shots.Capture(ctx, p.Driver, status, p.TestID, step, info)
}

// ScrollTo brings the first match into the viewport.
func (p *BasePage) ScrollTo(ctx context.Context, selector string) error {
	if err := p.Driver.ScrollIntoView(ctx, selector); err != nil {
		return fmt.Errorf("scroll to %s: %w", selector, err)
	}
	return nil
}
