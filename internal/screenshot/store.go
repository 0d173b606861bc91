// internal/screenshot/store.go
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// TimestampLayout formats the per-run directory name.
const TimestampLayout = "20060102-150405"

// Status selects the top-level pass/fail directory.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// StatusFor maps a test outcome to a Status.
func StatusFor(passed bool) Status {
	if passed {
		return StatusPass
	}
	return StatusFail
}

// RunInfo identifies one run. It is created once and shared by every capture
// of the run so all screenshots land under the same timestamp directory.
type RunInfo struct {
	ID        uuid.UUID
	Started   time.Time
	Timestamp string
}

// NewRunInfo stamps a run started at now.
func NewRunInfo(now time.Time) RunInfo {
	return RunInfo{
		ID:        uuid.New(),
		Started:   now,
		Timestamp: now.Format(TimestampLayout),
	}
}

// Screenshotter is the capture capability of a browser driver.
type Screenshotter interface {
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// nameSanitizer matches runs of characters that are unsafe in a file name.
var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(s string) string {
	return nameSanitizer.ReplaceAllString(s, "_")
}

// Store lays out screenshots as <root>/<pass|fail>/<run-timestamp>/<testId>_<step>[_<info>].png.
// A nil *Store is valid and discards every capture.
type Store struct {
	root     string
	run      RunInfo
	fullPage bool
	logger   *zap.Logger
}

// NewStore creates a store rooted at root. A leading ~ is expanded.
func NewStore(root string, run RunInfo, fullPage bool, logger *zap.Logger) (*Store, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand screenshot root %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:     expanded,
		run:      run,
		fullPage: fullPage,
		logger:   logger.Named("screenshot"),
	}, nil
}

// Run returns the run this store files captures under.
func (s *Store) Run() RunInfo {
	return s.run
}

// Path computes where a capture would be written. It does not touch the filesystem.
func (s *Store) Path(status Status, testID, step, info string) string {
	name := sanitize(testID) + "_" + sanitize(step)
	if info != "" {
		name += "_" + sanitize(info)
	}
	return filepath.Join(s.root, string(status), s.run.Timestamp, name+".png")
}

// Save writes data to the computed path, creating directories on demand.
func (s *Store) Save(status Status, testID, step, info string, data []byte) (string, error) {
	path := s.Path(status, testID, step, info)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return path, nil
}

// Capture takes a screenshot and saves it. Failures are logged and swallowed;
// the returned path is empty when nothing was written.
func (s *Store) Capture(ctx context.Context, shooter Screenshotter, status Status, testID, step, info string) string {
	if s == nil || shooter == nil {
		return ""
	}
	data, err := shooter.Screenshot(ctx, s.fullPage)
	if err != nil {
		s.logger.Warn("Failed to capture screenshot.", zap.String("test_id", testID), zap.String("step", step), zap.Error(err))
		return ""
	}
	path, err := s.Save(status, testID, step, info, data)
	if err != nil {
		s.logger.Warn("Failed to save screenshot.", zap.String("test_id", testID), zap.String("step", step), zap.Error(err))
		return ""
	}
	s.logger.Debug("Screenshot saved.", zap.String("path", path))
	return path
}
