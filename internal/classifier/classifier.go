// internal/classifier/classifier.go
package classifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/poll"
)

// NoConfirmationDetails is reported when neither indicator showed up within the poll window.
const NoConfirmationDetails = "Form submitted but no explicit confirmation displayed"

// Decision step names, also used as screenshot step labels.
const (
	StepValidationErrors  = "validation_errors"
	StepSuccess           = "success"
	StepNoConfirmation    = "no_confirmation"
	StepVerificationError = "verification_error"
)

// Page is the slice of the browser driver the classifier needs.
type Page interface {
	// IsVisible reports whether an element matching selector is rendered and visible.
	// A missing element is (false, nil).
	IsVisible(ctx context.Context, selector string) (bool, error)
	TextContent(ctx context.Context, selector string) (string, error)
	AllTextContents(ctx context.Context, selector string) ([]string, error)
}

// Selectors locate the result indicators on the page.
type Selectors struct {
	// ValidationIndicator becomes visible when the form rejected the input.
	ValidationIndicator string
	// ValidationMessages matches each individual field error message. Optional.
	ValidationMessages string
	// SuccessIndicator becomes visible when the form accepted the input.
	SuccessIndicator string
}

// Observer is notified after each decision point. Observers must not assume
// they run on any particular goroutine and must not panic; a panic is
// recovered and logged.
type Observer func(ctx context.Context, d Decision)

// Classifier turns post-submission page state into a Result.
type Classifier struct {
	page      Page
	selectors Selectors
	policy    poll.Policy
	clock     poll.Clock
	logger    *zap.Logger
	observers []Observer
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPolicy overrides the poll policy used while waiting for each indicator.
func WithPolicy(p poll.Policy) Option {
	return func(c *Classifier) { c.policy = p }
}

// WithClock overrides the clock used between poll attempts.
func WithClock(clock poll.Clock) Option {
	return func(c *Classifier) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l.Named("classifier")
		}
	}
}

// WithObserver registers an observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// New creates a Classifier for page.
func New(page Page, selectors Selectors, opts ...Option) *Classifier {
	c := &Classifier{
		page:      page,
		selectors: selectors,
		policy:    poll.DefaultPolicy,
		clock:     poll.RealClock{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify classifies the current page. The checks run in priority order and the
// first match wins: validation errors, then success, then the ambiguous
// no-confirmation fallback. Validation errors are checked first so a stale
// success banner from an earlier submission is never mistaken for acceptance.
//
// Probe failures never escape: they become a non-success Result carrying the error text.
func (c *Classifier) Verify(ctx context.Context, expectValidationErrors bool) Result {
	d, err := c.classify(ctx, expectValidationErrors)
	if err != nil {
		c.logger.Error("Error while verifying form submission.", zap.Error(err))
		d = Decision{
			Outcome: OutcomeProbeError,
			Step:    StepVerificationError,
			Result:  Result{Details: fmt.Sprintf("verification failed: %v", err)},
		}
	}

	c.logger.Info("Submission classified.",
		zap.Stringer("outcome", d.Outcome),
		zap.Bool("success", d.Result.IsSuccess),
		zap.Bool("validation_errors", d.Result.HasValidationErrors),
		zap.String("details", d.Result.Details),
	)
	c.notify(ctx, d)
	return d.Result
}

func (c *Classifier) classify(ctx context.Context, expectValidationErrors bool) (Decision, error) {
	hasErrors, err := c.waitVisible(ctx, c.selectors.ValidationIndicator)
	if err != nil {
		return Decision{}, fmt.Errorf("checking validation indicator: %w", err)
	}
	if hasErrors {
		details, err := c.validationDetails(ctx)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Outcome: OutcomeValidationError,
			Step:    StepValidationErrors,
			Result: Result{
				IsSuccess:           expectValidationErrors,
				HasValidationErrors: true,
				Details:             details,
			},
		}, nil
	}

	succeeded, err := c.waitVisible(ctx, c.selectors.SuccessIndicator)
	if err != nil {
		return Decision{}, fmt.Errorf("checking success indicator: %w", err)
	}
	if succeeded {
		text, err := c.page.TextContent(ctx, c.selectors.SuccessIndicator)
		if err != nil {
			return Decision{}, fmt.Errorf("reading success message: %w", err)
		}
		return Decision{
			Outcome: OutcomeSuccess,
			Step:    StepSuccess,
			Result: Result{
				IsSuccess: !expectValidationErrors,
				Details:   strings.TrimSpace(text),
			},
		}, nil
	}

	return Decision{
		Outcome: OutcomeAmbiguous,
		Step:    StepNoConfirmation,
		Result: Result{
			IsSuccess: !expectValidationErrors,
			Details:   NoConfirmationDetails,
		},
	}, nil
}

func (c *Classifier) waitVisible(ctx context.Context, selector string) (bool, error) {
	if selector == "" {
		return false, nil
	}
	return poll.Until(ctx, c.policy, c.clock, func(ctx context.Context) (bool, error) {
		return c.page.IsVisible(ctx, selector)
	})
}

// validationDetails joins the individual field messages. When there are none
// it falls back to the indicator's own text.
func (c *Classifier) validationDetails(ctx context.Context) (string, error) {
	var messages []string
	if c.selectors.ValidationMessages != "" {
		texts, err := c.page.AllTextContents(ctx, c.selectors.ValidationMessages)
		if err != nil {
			return "", fmt.Errorf("reading validation messages: %w", err)
		}
		messages = compact(texts)
	}
	if len(messages) > 0 {
		return strings.Join(messages, "; "), nil
	}

	text, err := c.page.TextContent(ctx, c.selectors.ValidationIndicator)
	if err != nil {
		return "", fmt.Errorf("reading validation indicator: %w", err)
	}
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}
	return "Validation errors displayed", nil
}

func (c *Classifier) notify(ctx context.Context, d Decision) {
	for _, o := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Warn("Decision observer panicked.", zap.Any("panic", r), zap.String("step", d.Step))
				}
			}()
			o(ctx, d)
		}()
	}
}

// compact trims every entry and drops the empty ones.
func compact(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
