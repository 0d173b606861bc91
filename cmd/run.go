// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser"
	"github.com/xkilldash9x/formcheck/internal/browser/ctxutil"
	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/observability"
	"github.com/xkilldash9x/formcheck/internal/reporting"
	"github.com/xkilldash9x/formcheck/internal/screenshot"
	"github.com/xkilldash9x/formcheck/internal/suite"
)

// shutdownTimeout bounds waiting for open tabs before the browser is killed.
const shutdownTimeout = 15 * time.Second

// sessionPool is a running browser the suite can open sessions in.
type sessionPool interface {
	suite.SessionFactory
	DriverName() string
	Shutdown(ctx context.Context) error
}

// browserLauncher starts the browser for a run. Tests inject a fake.
type browserLauncher func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sessionPool, error)

func launchBrowser(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sessionPool, error) {
	return browser.NewManager(ctx, cfg, logger)
}

// newRunCmd creates and configures the `run` command.
func newRunCmd(launch browserLauncher) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the contact form test suite against the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			return runSuite(ctx, cmd, cfg, launch)
		},
	}

	runCmd.Flags().String("url", "", "URL of the page holding the contact form (target.url)")
	runCmd.Flags().String("driver", "", "browser automation backend: chromedp or rod")
	runCmd.Flags().Bool("headless", true, "run the browser without a window")
	runCmd.Flags().IntP("concurrency", "j", 0, "number of cases run in parallel")
	runCmd.Flags().Int("repeat", 0, "run every case this many times")
	runCmd.Flags().Float64("rate", 0, "maximum case starts per second (0 = unlimited)")
	runCmd.Flags().String("cases", "", "YAML file with the test cases (default is the built-in catalogue)")
	runCmd.Flags().StringSlice("only", nil, "run only the cases with these ids")
	runCmd.Flags().StringP("format", "f", "", "also export the summary as text, json or yaml")
	runCmd.Flags().StringP("output", "o", "", "export destination (default is stdout, with the summary table moved to stderr)")
	runCmd.Flags().String("screenshots-dir", "", "root directory for screenshots")
	runCmd.Flags().Bool("screenshots", true, "capture screenshots")
	runCmd.Flags().Duration("case-timeout", 0, "upper bound on a single case")

	return runCmd
}

func runSuite(ctx context.Context, cmd *cobra.Command, cfg *config.Config, launch browserLauncher) error {
	logger := observability.GetLogger()

	if err := cfg.ValidateTarget(); err != nil {
		return err
	}

	cases, err := loadCases(cfg)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return errors.New("no test cases selected")
	}

	run := screenshot.NewRunInfo(time.Now())
	var opts []suite.Option
	if cfg.Screenshots.Enabled {
		store, err := screenshot.NewStore(cfg.Screenshots.Root, run, cfg.Screenshots.FullPage, logger)
		if err != nil {
			return err
		}
		opts = append(opts, suite.WithScreenshots(store))
	}

	logger.Info("Starting test run",
		zap.String("run_id", run.ID.String()),
		zap.String("target", cfg.Target.URL),
		zap.Int("cases", len(cases)),
	)

	pool, err := launch(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser ready", zap.String("run_id", run.ID.String()), zap.String("driver", pool.DriverName()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctxutil.Detach(ctx), shutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown failed", zap.Error(err))
		}
	}()

	reporter, runErr := suite.NewRunner(pool, cfg, logger, opts...).Run(ctx, cases)

	format, path := cfg.Suite.ExportFormat, cfg.Suite.ExportPath
	exportToStdout := format != "" && reporting.IsStdout(path)

	// stdout carries only the export when one is written there.
	summaryOut := cmd.OutOrStdout()
	if exportToStdout {
		summaryOut = cmd.ErrOrStderr()
	}
	reporter.PrintSummary(summaryOut)
	summary := reporter.Summary()

	if format != "" {
		if err := exportSummary(cmd.OutOrStdout(), format, path, summary); err != nil {
			return err
		}
		if !exportToStdout {
			logger.Info("Summary exported", zap.String("path", path), zap.String("format", format))
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrTestsFailed, summary.FailedTests, summary.TotalTests)
	}
	return nil
}

// loadCases resolves the catalogue and applies the --only filter.
func loadCases(cfg *config.Config) ([]suite.Case, error) {
	cases := suite.DefaultCases()
	if cfg.Suite.CasesFile != "" {
		loaded, err := suite.LoadCases(cfg.Suite.CasesFile)
		if err != nil {
			return nil, err
		}
		cases = loaded
	}
	return suite.Select(cases, cfg.Suite.Only)
}

// exportSummary writes s to path, or to stdout when path names standard output.
func exportSummary(stdout io.Writer, format, path string, s reporting.TestSummary) error {
	exporter, err := reporting.New(format, path, stdout)
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}
	if err := exporter.Write(s); err != nil {
		exporter.Close()
		return fmt.Errorf("failed to export summary: %w", err)
	}
	return exporter.Close()
}
