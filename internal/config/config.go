// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/formcheck/internal/reporting"
)

// EnvPrefix is the prefix for every environment variable that overrides a config key.
// For example FORMCHECK_TARGET_URL overrides target.url.
const EnvPrefix = "FORMCHECK"

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Network     NetworkConfig     `mapstructure:"network" yaml:"network"`
	Target      TargetConfig      `mapstructure:"target" yaml:"target"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" yaml:"classifier"`
	Screenshots ScreenshotsConfig `mapstructure:"screenshots" yaml:"screenshots"`
	Suite       SuiteConfig       `mapstructure:"suite" yaml:"suite"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for the different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Supported browser driver backends.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Driver          string         `mapstructure:"driver" yaml:"driver"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Concurrency     int            `mapstructure:"concurrency" yaml:"concurrency"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
}

// ViewportConfig is the emulated window size of every session.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// NetworkConfig tunes page loading and element interaction timing.
type NetworkConfig struct {
	NavigationTimeout time.Duration     `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration     `mapstructure:"action_timeout" yaml:"action_timeout"`
	IdleQuietPeriod   time.Duration     `mapstructure:"idle_quiet_period" yaml:"idle_quiet_period"`
	IdleTimeout       time.Duration     `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Headers           map[string]string `mapstructure:"headers" yaml:"headers"`
}

// TargetConfig describes the page under test.
type TargetConfig struct {
	URL       string          `mapstructure:"url" yaml:"url"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorsConfig holds the CSS selectors of the contact form and its result indicators.
type SelectorsConfig struct {
	Name                string `mapstructure:"name" yaml:"name"`
	Email               string `mapstructure:"email" yaml:"email"`
	Phone               string `mapstructure:"phone" yaml:"phone"`
	Subject             string `mapstructure:"subject" yaml:"subject"`
	Message             string `mapstructure:"message" yaml:"message"`
	Submit              string `mapstructure:"submit" yaml:"submit"`
	SuccessIndicator    string `mapstructure:"success_indicator" yaml:"success_indicator"`
	ValidationIndicator string `mapstructure:"validation_indicator" yaml:"validation_indicator"`
	ValidationMessages  string `mapstructure:"validation_messages" yaml:"validation_messages"`
}

// ClassifierConfig controls how long the classifier waits for a result indicator.
type ClassifierConfig struct {
	PollAttempts int           `mapstructure:"poll_attempts" yaml:"poll_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ScreenshotsConfig controls screenshot capture.
type ScreenshotsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Root     string `mapstructure:"root" yaml:"root"`
	FullPage bool   `mapstructure:"full_page" yaml:"full_page"`
}

// SuiteConfig holds settings for one run of the test catalogue.
type SuiteConfig struct {
	CasesFile     string        `mapstructure:"cases_file" yaml:"cases_file"`
	Only          []string      `mapstructure:"only" yaml:"only"`
	Repeat        int           `mapstructure:"repeat" yaml:"repeat"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	CaseTimeout   time.Duration `mapstructure:"case_timeout" yaml:"case_timeout"`
	ExportFormat  string        `mapstructure:"export_format" yaml:"export_format"`
	ExportPath    string        `mapstructure:"export_path" yaml:"export_path"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
// The selector defaults match a stock Contact Form 7 installation.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formcheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 2)
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 900)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "45s")
	v.SetDefault("network.action_timeout", "10s")
	v.SetDefault("network.idle_quiet_period", "500ms")
	v.SetDefault("network.idle_timeout", "15s")

	// -- Target --
	v.SetDefault("target.url", "")
	v.SetDefault("target.selectors.name", `input[name="your-name"]`)
	v.SetDefault("target.selectors.email", `input[name="your-email"]`)
	v.SetDefault("target.selectors.phone", `input[name="your-tel"]`)
	v.SetDefault("target.selectors.subject", `input[name="your-subject"]`)
	v.SetDefault("target.selectors.message", `textarea[name="your-message"]`)
	v.SetDefault("target.selectors.submit", `form.wpcf7-form [type="submit"]`)
	v.SetDefault("target.selectors.success_indicator", `form.sent .wpcf7-response-output`)
	v.SetDefault("target.selectors.validation_indicator", `form.invalid .wpcf7-response-output`)
	v.SetDefault("target.selectors.validation_messages", `.wpcf7-not-valid-tip`)

	// -- Classifier --
	v.SetDefault("classifier.poll_attempts", 3)
	v.SetDefault("classifier.poll_interval", "1s")

	// -- Screenshots --
	v.SetDefault("screenshots.enabled", true)
	v.SetDefault("screenshots.root", "screenshots")
	v.SetDefault("screenshots.full_page", true)

	// -- Suite --
	v.SetDefault("suite.cases_file", "")
	v.SetDefault("suite.repeat", 1)
	v.SetDefault("suite.only", []string{})
	v.SetDefault("suite.rate_per_second", 0.5)
	v.SetDefault("suite.export_format", "")
	v.SetDefault("suite.export_path", "")
	v.SetDefault("suite.case_timeout", "2m")
}

// Configure points v at the config file (or the default ./config.yaml lookup) and
// wires environment overrides. A missing default config file is not an error.
func Configure(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Variables already set win. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat env file %s: %w", f, err)
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// NewConfigFromViper creates a validated configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Normalize folds the case-insensitive enum settings to their canonical names.
func (c *Config) Normalize() {
	c.Browser.Driver = strings.ToLower(strings.TrimSpace(c.Browser.Driver))
	c.Suite.ExportFormat = reporting.NormalizeFormat(c.Suite.ExportFormat)
}

// Validate checks the configuration for required fields and sane values.
// Enum settings are expected in the form Normalize produces.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q", DriverChromedp, DriverRod, c.Browser.Driver)
	}
	if c.Browser.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.Classifier.PollAttempts <= 0 {
		return fmt.Errorf("classifier.poll_attempts must be a positive integer")
	}
	if c.Classifier.PollInterval < 0 {
		return fmt.Errorf("classifier.poll_interval must not be negative")
	}
	if c.Suite.Repeat <= 0 {
		return fmt.Errorf("suite.repeat must be a positive integer")
	}
	if c.Suite.RatePerSecond < 0 {
		return fmt.Errorf("suite.rate_per_second must not be negative")
	}
	if c.Suite.ExportFormat != "" && !reporting.SupportedFormat(c.Suite.ExportFormat) {
		return fmt.Errorf("suite.export_format %q is not supported", c.Suite.ExportFormat)
	}
	if err := c.Target.Selectors.Validate(); err != nil {
		return fmt.Errorf("target.selectors configuration invalid: %w", err)
	}
	return nil
}

// ValidateTarget checks the settings that are only needed when a run actually
// drives a browser.
func (c *Config) ValidateTarget() error {
	if strings.TrimSpace(c.Target.URL) == "" {
		return fmt.Errorf("target.url is required (set it in config.yaml or %s_TARGET_URL)", EnvPrefix)
	}
	return nil
}

// Validate checks that the selectors the classifier and submit step rely on are set.
func (s *SelectorsConfig) Validate() error {
	if s.Submit == "" {
		return fmt.Errorf("submit selector is required")
	}
	if s.SuccessIndicator == "" || s.ValidationIndicator == "" {
		return fmt.Errorf("success_indicator and validation_indicator are required")
	}
	return nil
}
