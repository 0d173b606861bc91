// internal/reporting/export.go
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Supported export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned for an export format that has no writer.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// NormalizeFormat folds a user supplied format name to its canonical form.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// SupportedFormat reports whether format can be exported. Matching ignores case.
func SupportedFormat(format string) bool {
	switch NormalizeFormat(format) {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// WriteSummary encodes s to w in the given format.
func WriteSummary(w io.Writer, format string, s TestSummary) error {
	switch NormalizeFormat(format) {
	case FormatText:
		_, err := io.WriteString(w, renderSummary(s))
		return err
	case FormatJSON:
		enc := json.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Exporter writes a finished run's summary to a file or stdout.
type Exporter struct {
	format string
	writer io.WriteCloser
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// IsStdout reports whether outputPath selects standard output.
func IsStdout(outputPath string) bool {
	return outputPath == "" || outputPath == "stdout"
}

// New creates an exporter for the given format. An empty path or "stdout"
// writes to stdout, or to os.Stdout when stdout is nil.
func New(format, outputPath string, stdout io.Writer) (*Exporter, error) {
	if !SupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	format = NormalizeFormat(format)

	if IsStdout(outputPath) {
		if stdout == nil {
			stdout = os.Stdout
		}
		// Wrapped so Close() is a no-op.
		return &Exporter{format: format, writer: &nopWriteCloser{stdout}}, nil
	}

	path, err := homedir.Expand(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return &Exporter{format: format, writer: f}, nil
}

// Write encodes the summary.
func (e *Exporter) Write(s TestSummary) error {
	return WriteSummary(e.writer, e.format, s)
}

// Close releases the underlying file, if any.
func (e *Exporter) Close() error {
	return e.writer.Close()
}
