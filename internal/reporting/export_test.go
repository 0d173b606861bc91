package reporting_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/formcheck/internal/reporting"
)

func sampleSummary(t *testing.T) reporting.TestSummary {
	t.Helper()
	r := newReporter(t)
	r.RecordTest("CONTACT-01", "valid submission", true, "Thank you")
	r.RecordTest("CONTACT-02", "empty form", false, "no errors shown")
	return r.Summary()
}

func TestWriteSummary_JSON(t *testing.T) {
	want := sampleSummary(t)
	var buf bytes.Buffer
	require.NoError(t, reporting.WriteSummary(&buf, reporting.FormatJSON, want))

	var got reporting.TestSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, want, got)
	assert.Contains(t, buf.String(), `"pass_rate": 50`)
}

func TestWriteSummary_YAML(t *testing.T) {
	want := sampleSummary(t)
	var buf bytes.Buffer
	require.NoError(t, reporting.WriteSummary(&buf, reporting.FormatYAML, want))

	var got reporting.TestSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, want, got)
	assert.Contains(t, buf.String(), "total_executions: 2")
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reporting.WriteSummary(&buf, reporting.FormatText, sampleSummary(t)))
	assert.Contains(t, buf.String(), "CONTACT-02: empty form")
}

func TestWriteSummary_Unsupported(t *testing.T) {
	err := reporting.WriteSummary(&bytes.Buffer{}, "sarif", reporting.TestSummary{})
	assert.ErrorIs(t, err, reporting.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "sarif")
}

func TestWriteSummary_FormatIgnoresCase(t *testing.T) {
	want := sampleSummary(t)
	var buf bytes.Buffer
	require.NoError(t, reporting.WriteSummary(&buf, " JSON ", want))

	var got reporting.TestSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, want, got)
}

func TestNew_Stdout(t *testing.T) {
	for _, path := range []string{"", "stdout"} {
		var buf bytes.Buffer
		e, err := reporting.New("YAML", path, &buf)
		require.NoError(t, err)
		require.NoError(t, e.Write(sampleSummary(t)))
		// closing the stdout wrapper is a no-op
		assert.NoError(t, e.Close())
		assert.Contains(t, buf.String(), "total_tests: 2", "path %q", path)
	}
}

func TestNew_NilStdoutFallsBackToProcessStdout(t *testing.T) {
	e, err := reporting.New(reporting.FormatJSON, "", nil)
	require.NoError(t, err)
	assert.NoError(t, e.Close())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.yaml")

	e, err := reporting.New(reporting.FormatYAML, path, nil)
	require.NoError(t, err)
	require.NoError(t, e.Write(sampleSummary(t)))
	require.NoError(t, e.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "total_tests: 2")
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")

	e, err := reporting.New("xml", path, nil)
	assert.ErrorIs(t, err, reporting.ErrUnsupportedFormat)
	assert.Nil(t, e)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unsupported format")
}

func TestSupportedFormat(t *testing.T) {
	assert.True(t, reporting.SupportedFormat("text"))
	assert.True(t, reporting.SupportedFormat("json"))
	assert.True(t, reporting.SupportedFormat("yaml"))
	assert.True(t, reporting.SupportedFormat("JSON"))
	assert.True(t, reporting.SupportedFormat("Yaml"))
	assert.False(t, reporting.SupportedFormat("sarif"))
	assert.False(t, reporting.SupportedFormat(""))
}

func TestIsStdout(t *testing.T) {
	assert.True(t, reporting.IsStdout(""))
	assert.True(t, reporting.IsStdout("stdout"))
	assert.False(t, reporting.IsStdout("summary.json"))
}
