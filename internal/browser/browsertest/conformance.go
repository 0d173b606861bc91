package browsertest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Driver mirrors browser.Driver so backends can be checked without importing it.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	IsVisible(ctx context.Context, selector string) (bool, error)
	TextContent(ctx context.Context, selector string) (string, error)
	AllTextContents(ctx context.Context, selector string) ([]string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	ScrollIntoView(ctx context.Context, selector string) error
	Close(ctx context.Context) error
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// Eventually polls cond for up to five seconds.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 5*time.Second, 100*time.Millisecond, msg)
}

// RunConformance drives drivers from open through the contact form served by
// srvURL. open must register its own cleanup and tolerate a second Close.
func RunConformance(t *testing.T, open func(t *testing.T) Driver, srvURL string) {
	ctx := context.Background()

	t.Run("missing element is not visible", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Navigate(ctx, srvURL+"/contact/"))
		require.NoError(t, d.WaitNetworkIdle(ctx))

		visible, err := d.IsVisible(ctx, "#does-not-exist")
		require.NoError(t, err)
		assert.False(t, visible)

		visible, err = d.IsVisible(ctx, "form.wpcf7-form .wpcf7-response-output")
		require.NoError(t, err)
		assert.False(t, visible, "hidden by CSS until submission")

		_, err = d.TextContent(ctx, "#does-not-exist")
		assert.Error(t, err)

		texts, err := d.AllTextContents(ctx, ".wpcf7-not-valid-tip")
		require.NoError(t, err)
		assert.Empty(t, texts)
	})

	t.Run("valid submission shows success", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Navigate(ctx, srvURL+"/contact/"))
		require.NoError(t, d.ScrollIntoView(ctx, `input[name="your-name"]`))
		require.NoError(t, d.Fill(ctx, `input[name="your-name"]`, "Jane Tester"))
		require.NoError(t, d.Fill(ctx, `input[name="your-email"]`, "jane@example.com"))
		require.NoError(t, d.Fill(ctx, `textarea[name="your-message"]`, "Hello there"))
		require.NoError(t, d.Click(ctx, `form.wpcf7-form [type="submit"]`))

		Eventually(t, func() bool {
			ok, err := d.IsVisible(ctx, "form.sent .wpcf7-response-output")
			return err == nil && ok
		}, "success indicator should appear")

		text, err := d.TextContent(ctx, "form.sent .wpcf7-response-output")
		require.NoError(t, err)
		assert.Contains(t, text, "Thank you for your message")
	})

	t.Run("empty submission shows validation tips", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Navigate(ctx, srvURL+"/contact/"))
		require.NoError(t, d.Click(ctx, `form.wpcf7-form [type="submit"]`))

		Eventually(t, func() bool {
			ok, err := d.IsVisible(ctx, "form.invalid .wpcf7-response-output")
			return err == nil && ok
		}, "validation indicator should appear")

		tips, err := d.AllTextContents(ctx, ".wpcf7-not-valid-tip")
		require.NoError(t, err)
		assert.Len(t, tips, 3)
	})

	t.Run("fill replaces existing value", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Navigate(ctx, srvURL+"/contact/"))
		require.NoError(t, d.Fill(ctx, `input[name="your-email"]`, "first@example.com"))
		require.NoError(t, d.Fill(ctx, `input[name="your-email"]`, "not-an-email"))
		require.NoError(t, d.Fill(ctx, `input[name="your-name"]`, "Jane"))
		require.NoError(t, d.Fill(ctx, `textarea[name="your-message"]`, "Hi"))
		require.NoError(t, d.Click(ctx, `form.wpcf7-form [type="submit"]`))

		Eventually(t, func() bool {
			tips, err := d.AllTextContents(ctx, ".wpcf7-not-valid-tip")
			return err == nil && len(tips) == 1
		}, "only the e-mail should be rejected")
	})

	t.Run("screenshots are png", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Navigate(ctx, srvURL+"/contact/"))
		for _, full := range []bool{false, true} {
			data, err := d.Screenshot(ctx, full)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngMagic), "fullPage=%v", full)
		}
	})

	t.Run("close", func(t *testing.T) {
		d := open(t)
		require.NoError(t, d.Close(ctx))
	})
}
