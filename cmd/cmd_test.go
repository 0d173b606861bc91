// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser"
	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/mocks"
	"github.com/xkilldash9x/formcheck/internal/reporting"
	"github.com/xkilldash9x/formcheck/internal/suite"
)

// fakePool stands in for a launched browser. Every session is a driver on
// which the form always submits successfully.
type fakePool struct {
	t   *testing.T
	err error

	mu       sync.Mutex
	opened   int
	shutdown bool
	cfg      *config.Config
}

func (p *fakePool) launch(_ context.Context, cfg *config.Config, _ *zap.Logger) (sessionPool, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.cfg = cfg
	return p, nil
}

func (p *fakePool) NewSession(context.Context) (browser.Driver, error) {
	p.mu.Lock()
	p.opened++
	p.mu.Unlock()

	sel := config.NewDefaultConfig().Target.Selectors
	d := mocks.NewMockDriver(p.t)
	d.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	d.On("WaitNetworkIdle", mock.Anything).Return(nil)
	d.On("ScrollIntoView", mock.Anything, mock.Anything).Return(nil)
	d.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	d.On("Click", mock.Anything, sel.Submit).Return(nil)
	d.On("IsVisible", mock.Anything, sel.ValidationIndicator).Return(false, nil)
	d.On("IsVisible", mock.Anything, sel.SuccessIndicator).Return(true, nil)
	d.On("TextContent", mock.Anything, sel.SuccessIndicator).Return("Thank you for your message.", nil)
	d.On("Screenshot", mock.Anything, mock.Anything).Return([]byte("\x89PNG"), nil).Maybe()
	d.On("Close", mock.Anything).Return(nil)
	return d, nil
}

func (p *fakePool) DriverName() string { return "fake" }

func (p *fakePool) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	return nil
}

// isolate keeps a test away from config files, dotenv files and FORMCHECK_*
// variables of the developer's machine.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())

	t.Setenv("FORMCHECK_CLASSIFIER_POLL_INTERVAL", "1ms")
	t.Setenv("FORMCHECK_LOGGER_LEVEL", "error")
}

func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// executeSplit runs root with separate stdout and stderr buffers.
func executeSplit(t *testing.T, root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolate(t)
	out, err := execute(t, NewRootCommand(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "formcheck version "+Version)
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, NewRootCommand(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "formcheck "+Version)
}

func TestRunCmd_RequiresURL(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}

	_, err := execute(t, newRootCmd(pool.launch), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.url is required")
	assert.Zero(t, pool.opened, "no browser is started without a target")
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("FORMCHECK_BROWSER_DRIVER", "netscape")

	_, err := execute(t, newRootCmd((&fakePool{t: t}).launch), "run", "--url", "https://example.test/contact/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}

func TestRunCmd_PassingRun(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}
	export := filepath.Join(t.TempDir(), "out", "summary.json")

	out, err := execute(t, newRootCmd(pool.launch), "run",
		"--url", "https://example.test/contact/",
		"--only", "CONTACT-01",
		"--rate", "0",
		"--screenshots=false",
		"--format", "json",
		"--output", export,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "TEST SUMMARY")
	assert.Contains(t, out, "CONTACT-01")
	assert.Equal(t, 1, pool.opened)
	assert.True(t, pool.shutdown, "the browser is always shut down")

	assert.Equal(t, "https://example.test/contact/", pool.cfg.Target.URL)
	assert.Equal(t, []string{"CONTACT-01"}, pool.cfg.Suite.Only)
	assert.False(t, pool.cfg.Screenshots.Enabled)

	raw, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pass_rate": 100`)
}

func TestRunCmd_FormatIsCaseInsensitive(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}
	export := filepath.Join(t.TempDir(), "summary.yaml")

	_, err := execute(t, newRootCmd(pool.launch), "run",
		"--url", "https://example.test/contact/",
		"--only", "CONTACT-01",
		"--rate", "0",
		"--screenshots=false",
		"--format", "YAML",
		"--output", export,
	)
	require.NoError(t, err)
	assert.Equal(t, "yaml", pool.cfg.Suite.ExportFormat)

	raw, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pass_rate: 100")
}

func TestRunCmd_UnsupportedFormatFailsBeforeLaunch(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}

	_, err := execute(t, newRootCmd(pool.launch), "run",
		"--url", "https://example.test/contact/",
		"--format", "xml",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suite.export_format")
	assert.Nil(t, pool.cfg, "the browser is never launched")
}

func TestRunCmd_ExportToStdoutKeepsStdoutParseable(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}

	stdout, stderr, err := executeSplit(t, newRootCmd(pool.launch), "run",
		"--url", "https://example.test/contact/",
		"--only", "CONTACT-01",
		"--rate", "0",
		"--screenshots=false",
		"--format", "JSON",
	)
	require.NoError(t, err)

	var got reporting.TestSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &got), "stdout holds only the export: %q", stdout)
	assert.Equal(t, 1, got.TotalTests)
	assert.Equal(t, 100, got.PassRate)

	assert.Contains(t, stderr, "TEST SUMMARY")
	assert.NotContains(t, stdout, "TEST SUMMARY")
}

func TestRunCmd_FailingRunReturnsErrTestsFailed(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}

	// The fake form accepts everything, so a case expecting validation errors fails.
	out, err := execute(t, newRootCmd(pool.launch), "run",
		"--url", "https://example.test/contact/",
		"--only", "CONTACT-01,CONTACT-02",
		"--rate", "0",
		"--screenshots-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTestsFailed)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "FAIL CONTACT-02")
	assert.True(t, pool.shutdown)
}

func TestRunCmd_LaunchError(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t, err: browser.ErrUnknownDriver}

	_, err := execute(t, newRootCmd(pool.launch), "run", "--url", "https://example.test/contact/", "--screenshots=false")
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrUnknownDriver)
}

func TestRunCmd_UnknownCase(t *testing.T) {
	isolate(t)
	_, err := execute(t, newRootCmd((&fakePool{t: t}).launch), "run",
		"--url", "https://example.test/contact/", "--only", "NOPE-1")
	assert.ErrorIs(t, err, suite.ErrUnknownCase)
}

func TestRunCmd_ConfigFileAndDotEnv(t *testing.T) {
	isolate(t)
	pool := &fakePool{t: t}
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "formcheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
target:
  url: https://example.test/contact/
suite:
  rate_per_second: 0
screenshots:
  enabled: false
`), 0o644))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("FORMCHECK_SUITE_REPEAT=2\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("FORMCHECK_SUITE_REPEAT") })

	out, err := execute(t, newRootCmd(pool.launch), "--config", cfgPath, "--env-file", envPath, "run", "--only", "CONTACT-01")
	require.NoError(t, err)

	assert.Equal(t, 2, pool.cfg.Suite.Repeat, "dotenv overrides the config file")
	assert.Equal(t, 2, pool.opened)
	assert.Contains(t, out, "Total executions: 2")
}

func TestCasesCmd(t *testing.T) {
	isolate(t)

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, NewRootCommand(), "cases")
		require.NoError(t, err)
		for _, c := range suite.DefaultCases() {
			assert.Contains(t, out, c.ID)
		}
		assert.Contains(t, out, "validation errors")
	})

	t.Run("yaml round trips as a cases file", func(t *testing.T) {
		out, err := execute(t, NewRootCommand(), "cases", "-f", "yaml", "--only", "CONTACT-03")
		require.NoError(t, err)

		parsed, err := suite.ParseCases([]byte(out))
		require.NoError(t, err)
		require.Len(t, parsed, 1)
		assert.Equal(t, suite.DefaultCases()[2], parsed[0])
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cases.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cases:\n  - id: CUSTOM-1\n    name: custom\n"), 0o644))

		out, err := execute(t, NewRootCommand(), "cases", "--cases", path, "-f", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"id": "CUSTOM-1"`)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := execute(t, NewRootCommand(), "cases", "-f", "xml")
		assert.ErrorContains(t, err, "unsupported cases format")
	})
}

func TestBindFlags_OnlyChangedFlagsOverride(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	c := newRunCmd(launchBrowser)
	require.NoError(t, c.ParseFlags([]string{"--repeat", "4"}))
	require.NoError(t, bindFlags(c, v))

	assert.Equal(t, 4, v.GetInt("suite.repeat"))
	assert.True(t, v.GetBool("browser.headless"), "unset flags keep the config value")
	assert.Equal(t, 2, v.GetInt("browser.concurrency"))
}

func TestConfigFromContext(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := configFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestExportSummary_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := exportSummary(&buf, "xml", "", reporting.TestSummary{})
	assert.True(t, errors.Is(err, reporting.ErrUnsupportedFormat))
	assert.Zero(t, buf.Len())
}

func TestExportSummary_StdoutUsesGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportSummary(&buf, "text", "stdout", reporting.TestSummary{TotalTests: 3}))
	assert.Contains(t, buf.String(), "TEST SUMMARY")
}
