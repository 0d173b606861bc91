// internal/pages/contact.go
package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/classifier"
	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/poll"
	"github.com/xkilldash9x/formcheck/internal/screenshot"
)

// Screenshot steps taken by the contact page outside classification.
const (
	StepPageLoaded = "page_loaded"
	StepFormFilled = "form_filled"
)

// ContactForm is the payload typed into the form. Empty fields are left untouched.
type ContactForm struct {
	Name    string `yaml:"name" json:"name"`
	Email   string `yaml:"email" json:"email"`
	Phone   string `yaml:"phone" json:"phone"`
	Subject string `yaml:"subject" json:"subject"`
	Message string `yaml:"message" json:"message"`
}

// ContactPage drives the contact form.
type ContactPage struct {
	BasePage
	url       string
	selectors config.SelectorsConfig
	policy    poll.Policy
	clock     poll.Clock
}

// ContactOption configures a ContactPage.
type ContactOption func(*ContactPage)

// WithPollPolicy sets the policy used while waiting for the result indicators.
func WithPollPolicy(p poll.Policy) ContactOption {
	return func(c *ContactPage) { c.policy = p }
}

// WithClock overrides the clock used between poll attempts.
func WithClock(clock poll.Clock) ContactOption {
	return func(c *ContactPage) { c.clock = clock }
}

// NewContactPage creates a page object for the form described by target.
func NewContactPage(base BasePage, target config.TargetConfig, opts ...ContactOption) *ContactPage {
	c := &ContactPage{
		BasePage:  base,
		url:       target.URL,
		selectors: target.Selectors,
		policy:    poll.DefaultPolicy,
		clock:     poll.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the page holding the form.
func (c *ContactPage) Open(ctx context.Context) error {
	if err := c.Goto(ctx, c.url); err != nil {
		return fmt.Errorf("open contact page: %w", err)
	}
	c.Capture(ctx, screenshot.StatusPass, StepPageLoaded, "")
	return nil
}

// FillForm types every non-empty field, scrolling each into view first.
func (c *ContactPage) FillForm(ctx context.Context, form ContactForm) error {
	fields := []struct {
		label, selector, value string
	}{
		{"name", c.selectors.Name, form.Name},
		{"email", c.selectors.Email, form.Email},
		{"phone", c.selectors.Phone, form.Phone},
		{"subject", c.selectors.Subject, form.Subject},
		{"message", c.selectors.Message, form.Message},
	}

	filled := 0
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if f.selector == "" {
			c.Logger.Debug("No selector configured, skipping field.", zap.String("field", f.label))
			continue
		}
		if err := c.ScrollTo(ctx, f.selector); err != nil {
			return fmt.Errorf("fill %s field: %w", f.label, err)
		}
		if err := c.Driver.Fill(ctx, f.selector, f.value); err != nil {
			return fmt.Errorf("fill %s field: %w", f.label, err)
		}
		filled++
	}

	c.Logger.Debug("Form filled.", zap.Int("fields", filled))
	c.Capture(ctx, screenshot.StatusPass, StepFormFilled, "")
	return nil
}

// Submit clicks the submit control.
func (c *ContactPage) Submit(ctx context.Context) error {
	if err := c.ScrollTo(ctx, c.selectors.Submit); err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	if err := c.Driver.Click(ctx, c.selectors.Submit); err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	return nil
}

// VerifySubmission classifies what the page shows after Submit. It never
// fails; probe errors surface as a non-success result.
func (c *ContactPage) VerifySubmission(ctx context.Context, expectValidationErrors bool) classifier.Result {
	cl := classifier.New(c.Driver,
		classifier.Selectors{
			ValidationIndicator: c.selectors.ValidationIndicator,
			ValidationMessages:  c.selectors.ValidationMessages,
			SuccessIndicator:    c.selectors.SuccessIndicator,
		},
		classifier.WithPolicy(c.policy),
		classifier.WithClock(c.clock),
		classifier.WithLogger(c.Logger),
		classifier.WithObserver(screenshot.Observer(c.Shots, c.Driver, c.TestID)),
	)
	return cl.Verify(ctx, expectValidationErrors)
}
