// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
)

// ErrUnknownDriver is returned when browser.driver names no known backend.
var ErrUnknownDriver = errors.New("unknown browser driver")

// ErrManagerClosed is returned by NewSession after Shutdown has begun.
var ErrManagerClosed = errors.New("browser manager is shut down")

// Driver is one isolated browser tab. Selectors are CSS selectors.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until no requests have been in flight for the
	// configured quiet period.
	WaitNetworkIdle(ctx context.Context) error
	// Fill replaces the value of the matched input with text.
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// IsVisible reports whether any element matching selector is rendered.
	// A selector that matches nothing yields (false, nil).
	IsVisible(ctx context.Context, selector string) (bool, error)
	// TextContent returns the text of the first match. It fails when nothing matches.
	TextContent(ctx context.Context, selector string) (string, error)
	// AllTextContents returns the text of every match, possibly none.
	AllTextContents(ctx context.Context, selector string) ([]string, error)
	// Screenshot returns a PNG of the viewport, or of the whole page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	ScrollIntoView(ctx context.Context, selector string) error
	Close(ctx context.Context) error
}

// Backend owns a browser process and opens tabs in it.
type Backend interface {
	Open(ctx context.Context) (Driver, error)
	Close(ctx context.Context) error
}
