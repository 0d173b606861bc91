// internal/suite/runner.go
package suite

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/formcheck/internal/browser"
	"github.com/xkilldash9x/formcheck/internal/browser/ctxutil"
	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/pages"
	"github.com/xkilldash9x/formcheck/internal/poll"
	"github.com/xkilldash9x/formcheck/internal/reporting"
	"github.com/xkilldash9x/formcheck/internal/screenshot"
)

// sessionCloseTimeout bounds closing a tab after its case, even when the run was canceled.
const sessionCloseTimeout = 10 * time.Second

// Screenshot step for a case that failed before verification.
const stepError = "error"

// SessionFactory opens browser sessions. *browser.Manager implements it.
type SessionFactory interface {
	NewSession(ctx context.Context) (browser.Driver, error)
}

// Runner executes cases concurrently, each in its own browser session, and
// records every execution in one run-scoped reporter.
type Runner struct {
	sessions SessionFactory
	cfg      *config.Config
	logger   *zap.Logger
	shots    *screenshot.Store
	clock    poll.Clock
	run      screenshot.RunInfo
	limiter  *rate.Limiter
}

// Option configures a Runner.
type Option func(*Runner)

// WithScreenshots enables captures into store. The store's run becomes the runner's run.
func WithScreenshots(store *screenshot.Store) Option {
	return func(r *Runner) {
		if store != nil {
			r.shots = store
			r.run = store.Run()
		}
	}
}

// WithClock overrides the clock used by result polling.
func WithClock(clock poll.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

// NewRunner creates a Runner.
func NewRunner(sessions SessionFactory, cfg *config.Config, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.Named("runner"),
		clock:    poll.RealClock{},
		run:      screenshot.NewRunInfo(time.Now()),
		limiter:  newLimiter(cfg.Suite.RatePerSecond),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newLimiter paces case starts; a non-positive rate means unlimited.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Run executes every non-skipped case suite.repeat times. A failing or
// panicking case is recorded and never stops its siblings. The returned error
// is non-nil only when ctx ended before all cases ran.
func (r *Runner) Run(ctx context.Context, cases []Case) (*reporting.Reporter, error) {
	reporter := reporting.NewReporter(r.logger)

	repeat := r.cfg.Suite.Repeat
	if repeat < 1 {
		repeat = 1
	}
	concurrency := r.cfg.Browser.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	r.logger.Info("Starting run.",
		zap.String("run_id", r.run.ID.String()),
		zap.String("run_timestamp", r.run.Timestamp),
		zap.Int("cases", len(cases)),
		zap.Int("repeat", repeat),
		zap.Int("concurrency", concurrency),
	)

	var g errgroup.Group
	g.SetLimit(concurrency)

	for iteration := 1; iteration <= repeat; iteration++ {
		for _, c := range cases {
			if c.Skip {
				if iteration == 1 {
					r.logger.Info("Skipping case.", zap.String("test_id", c.ID))
				}
				continue
			}
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := r.limiter.Wait(ctx); err != nil {
					return nil
				}
				r.runCase(ctx, c, iteration, reporter)
				return nil
			})
		}
	}
	_ = g.Wait()

	summary := reporter.Summary()
	r.logger.Info("Run finished.",
		zap.String("run_id", r.run.ID.String()),
		zap.Int("tests", summary.TotalTests),
		zap.Int("executions", summary.TotalExecutions),
		zap.Int("pass_rate", summary.PassRate),
	)

	if err := ctx.Err(); err != nil {
		return reporter, fmt.Errorf("run interrupted: %w", err)
	}
	return reporter, nil
}

func (r *Runner) runCase(ctx context.Context, c Case, iteration int, reporter *reporting.Reporter) {
	logger := r.logger.With(zap.String("test_id", c.ID), zap.Int("iteration", iteration))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Case panicked.", zap.Any("panic", rec))
			reporter.RecordTest(c.ID, c.Name, false, fmt.Sprintf("panic: %v", rec))
		}
	}()

	caseCtx := ctx
	if timeout := r.cfg.Suite.CaseTimeout; timeout > 0 {
		var cancel context.CancelFunc
		caseCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	d, err := r.sessions.NewSession(caseCtx)
	if err != nil {
		logger.Error("Failed to open browser session.", zap.Error(err))
		reporter.RecordTest(c.ID, c.Name, false, fmt.Sprintf("open browser session: %v", err))
		return
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(ctxutil.Detach(ctx), sessionCloseTimeout)
		defer cancel()
		if err := d.Close(closeCtx); err != nil {
			logger.Debug("Failed to close browser session.", zap.Error(err))
		}
	}()

	page := pages.NewContactPage(
		pages.NewBasePage(d, r.shots, c.ID, r.logger),
		r.cfg.Target,
		pages.WithPollPolicy(poll.Policy{
			Attempts: r.cfg.Classifier.PollAttempts,
			Interval: r.cfg.Classifier.PollInterval,
		}),
		pages.WithClock(r.clock),
	)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"open", page.Open},
		{"fill", func(ctx context.Context) error { return page.FillForm(ctx, c.Form) }},
		{"submit", page.Submit},
	}
	for _, step := range steps {
		if err := step.fn(caseCtx); err != nil {
			logger.Warn("Case step failed.", zap.String("step", step.name), zap.Error(err))
			page.Capture(ctxutil.Detach(caseCtx), screenshot.StatusFail, stepError, step.name)
			reporter.RecordTest(c.ID, c.Name, false, err.Error())
			return
		}
	}

	res := page.VerifySubmission(caseCtx, c.ExpectValidationErrors)
	reporter.RecordTest(c.ID, c.Name, res.IsSuccess, res.Details)
}
