package reporting

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// recentDetails is how many history entries PrintSummary shows per test.
const recentDetails = 3

// TestSummary is a derived snapshot of a Reporter. It is recomputed on demand.
type TestSummary struct {
	TotalTests      int           `json:"total_tests" yaml:"total_tests"`
	PassedTests     int           `json:"passed_tests" yaml:"passed_tests"`
	FailedTests     int           `json:"failed_tests" yaml:"failed_tests"`
	TotalExecutions int           `json:"total_executions" yaml:"total_executions"`
	PassRate        int           `json:"pass_rate" yaml:"pass_rate"`
	Tests           []TestDetails `json:"tests" yaml:"tests"`
}

// TestDetails is the per-test view inside a TestSummary.
type TestDetails struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Passed      uint     `json:"passed" yaml:"passed"`
	Failed      uint     `json:"failed" yaml:"failed"`
	TotalRuns   uint     `json:"total_runs" yaml:"total_runs"`
	LastOutcome bool     `json:"last_outcome" yaml:"last_outcome"`
	Details     []string `json:"details,omitempty" yaml:"details,omitempty"`
}

// HasFailures reports whether any test failed at least once.
func (s TestSummary) HasFailures() bool {
	return s.FailedTests > 0
}

// Summary computes the current summary. PassedTests and FailedTests count
// tests with at least one pass or fail respectively, so one test can count
// toward both.
func (r *Reporter) Summary() TestSummary {
	records := r.Records()

	s := TestSummary{
		TotalTests: len(records),
		Tests:      make([]TestDetails, 0, len(records)),
	}
	for _, rec := range records {
		if rec.PassedCount > 0 {
			s.PassedTests++
		}
		if rec.FailedCount > 0 {
			s.FailedTests++
		}
		s.TotalExecutions += int(rec.TotalRuns())
		s.Tests = append(s.Tests, TestDetails{
			ID:          rec.ID,
			Name:        rec.Name,
			Passed:      rec.PassedCount,
			Failed:      rec.FailedCount,
			TotalRuns:   rec.TotalRuns(),
			LastOutcome: rec.LastOutcome,
			Details:     rec.DetailHistory,
		})
	}
	if s.TotalTests > 0 {
		s.PassRate = int(math.Round(100 * float64(s.PassedTests) / float64(s.TotalTests)))
	}
	return s
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// PrintSummary writes the summary plus the most recent detail entries of each test to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	_, _ = io.WriteString(w, renderSummary(r.Summary()))
}

func renderSummary(s TestSummary) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("TEST SUMMARY"))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("=", 50)))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Total tests:      %d\n", s.TotalTests)
	fmt.Fprintf(&sb, "Passed:           %d\n", s.PassedTests)
	fmt.Fprintf(&sb, "Failed:           %d\n", s.FailedTests)
	fmt.Fprintf(&sb, "Total executions: %d\n", s.TotalExecutions)
	fmt.Fprintf(&sb, "Pass rate:        %d%%\n", s.PassRate)

	if len(s.Tests) == 0 {
		return sb.String()
	}

	sb.WriteString("\n")
	for _, t := range s.Tests {
		status := passStyle.Render("PASS")
		if !t.LastOutcome {
			status = failStyle.Render("FAIL")
		}
		fmt.Fprintf(&sb, "%s %s: %s (%d passed, %d failed)\n", status, t.ID, t.Name, t.Passed, t.Failed)

		details := t.Details
		if len(details) > recentDetails {
			details = details[len(details)-recentDetails:]
		}
		for _, d := range details {
			sb.WriteString(mutedStyle.Render("    " + d))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
