// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// ErrTestsFailed is returned by the run command when at least one test failed.
var ErrTestsFailed = errors.New("one or more tests failed")

// flagBindings maps command flags to the config keys they override. Flags a
// command does not define are ignored.
var flagBindings = map[string]string{
	"log-level":       "logger.level",
	"url":             "target.url",
	"driver":          "browser.driver",
	"headless":        "browser.headless",
	"concurrency":     "browser.concurrency",
	"repeat":          "suite.repeat",
	"rate":            "suite.rate_per_second",
	"cases":           "suite.cases_file",
	"only":            "suite.only",
	"format":          "suite.export_format",
	"output":          "suite.export_path",
	"screenshots-dir": "screenshots.root",
	"screenshots":     "screenshots.enabled",
	"case-timeout":    "suite.case_timeout",
}

// NewRootCommand builds a fresh command tree. Each call is independent, so tests
// and embedders never share flag state.
func NewRootCommand() *cobra.Command {
	return newRootCmd(launchBrowser)
}

func newRootCmd(launch browserLauncher) *cobra.Command {
	var (
		cfgFile  string
		envFiles []string
	)

	rootCmd := &cobra.Command{
		Use:           "formcheck",
		Short:         "Formcheck runs end-to-end checks against a website contact form.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}

			v := viper.New()
			config.SetDefaults(v)
			if err := config.Configure(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			if err := bindFlags(cmd, v); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formcheck"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting formcheck", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading config (default is ./.env)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "formcheck version %s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd(launch))
	rootCmd.AddCommand(newCasesCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// bindFlags lets every flag the user actually set override its config key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// Execute runs the command tree with ctx, which should be signal-aware.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrTestsFailed):
		// The summary already told the story.
	case errors.Is(err, context.Canceled):
		observability.GetLogger().Warn("Run aborted by signal.")
	default:
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
