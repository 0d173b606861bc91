package screenshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formcheck/internal/classifier"
)

type fakeShooter struct {
	data     []byte
	err      error
	fullPage []bool
}

func (f *fakeShooter) Screenshot(_ context.Context, fullPage bool) ([]byte, error) {
	f.fullPage = append(f.fullPage, fullPage)
	return f.data, f.err
}

var testRun = RunInfo{Timestamp: "20250314-092653"}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(root, testRun, true, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, root
}

func TestNewRunInfo(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	a := NewRunInfo(now)
	b := NewRunInfo(now)

	assert.Equal(t, "20250314-092653", a.Timestamp)
	assert.Equal(t, now, a.Started)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_Path(t *testing.T) {
	s, root := newTestStore(t)

	tests := []struct {
		name               string
		status             Status
		testID, step, info string
		want               string
	}{
		{"without info", StatusPass, "CONTACT-01", "success", "", "pass/20250314-092653/CONTACT-01_success.png"},
		{"with info", StatusFail, "CONTACT-02", "validation_errors", "after-submit", "fail/20250314-092653/CONTACT-02_validation_errors_after-submit.png"},
		{"sanitised", StatusFail, "contact/../01", "step one", "a:b*c", "fail/20250314-092653/contact_.._01_step_one_a_b_c.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Path(tt.status, tt.testID, tt.step, tt.info)
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestStore_PathSharesRunTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.Path(StatusPass, "A", "x", "")
	b := s.Path(StatusFail, "B", "y", "")
	assert.Equal(t, filepath.Base(filepath.Dir(a)), filepath.Base(filepath.Dir(b)))
	assert.Equal(t, testRun.Timestamp, s.Run().Timestamp)
}

func TestStore_Save(t *testing.T) {
	s, _ := newTestStore(t)

	path, err := s.Save(StatusPass, "CONTACT-01", "form_filled", "", []byte("png"))
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))
}

func TestStore_SaveFailsWhenRootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	s, err := NewStore(file, testRun, false, nil)
	require.NoError(t, err)

	_, err = s.Save(StatusPass, "A", "x", "", []byte("png"))
	assert.Error(t, err)
}

func TestStore_Capture(t *testing.T) {
	t.Run("writes screenshot", func(t *testing.T) {
		s, _ := newTestStore(t)
		shooter := &fakeShooter{data: []byte("png")}

		path := s.Capture(context.Background(), shooter, StatusFail, "A", "submit", "")
		require.NotEmpty(t, path)
		assert.FileExists(t, path)
		assert.Equal(t, []bool{true}, shooter.fullPage)
	})

	t.Run("capture error is swallowed", func(t *testing.T) {
		s, root := newTestStore(t)
		path := s.Capture(context.Background(), &fakeShooter{err: errors.New("target closed")}, StatusFail, "A", "submit", "")
		assert.Empty(t, path)
		assert.NoDirExists(t, filepath.Join(root, "fail"))
	})

	t.Run("nil store discards", func(t *testing.T) {
		var s *Store
		assert.Empty(t, s.Capture(context.Background(), &fakeShooter{data: []byte("png")}, StatusPass, "A", "x", ""))
	})
}

func TestObserver(t *testing.T) {
	tests := []struct {
		name     string
		decision classifier.Decision
		want     Status
	}{
		{"validation errors", classifier.Decision{Outcome: classifier.OutcomeValidationError, Step: classifier.StepValidationErrors, Result: classifier.Result{IsSuccess: true, HasValidationErrors: true}}, StatusFail},
		{"success", classifier.Decision{Outcome: classifier.OutcomeSuccess, Step: classifier.StepSuccess, Result: classifier.Result{IsSuccess: true}}, StatusPass},
		{"ambiguous pass", classifier.Decision{Outcome: classifier.OutcomeAmbiguous, Step: classifier.StepNoConfirmation, Result: classifier.Result{IsSuccess: true}}, StatusPass},
		{"ambiguous fail", classifier.Decision{Outcome: classifier.OutcomeAmbiguous, Step: classifier.StepNoConfirmation}, StatusFail},
		{"probe error", classifier.Decision{Outcome: classifier.OutcomeProbeError, Step: classifier.StepVerificationError}, StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			obs := Observer(s, &fakeShooter{data: []byte("png")}, "CONTACT-01")

			obs(context.Background(), tt.decision)
			assert.FileExists(t, s.Path(tt.want, "CONTACT-01", tt.decision.Step, ""))
		})
	}
}
