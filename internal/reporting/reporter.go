// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TestRecord accumulates the executions of one test id within a run.
// PassedCount + FailedCount always equals TotalRuns().
type TestRecord struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	PassedCount   uint     `json:"passed_count" yaml:"passed_count"`
	FailedCount   uint     `json:"failed_count" yaml:"failed_count"`
	LastOutcome   bool     `json:"last_outcome" yaml:"last_outcome"`
	DetailHistory []string `json:"detail_history,omitempty" yaml:"detail_history,omitempty"`
}

// TotalRuns is the number of recorded executions.
func (r *TestRecord) TotalRuns() uint {
	return r.PassedCount + r.FailedCount
}

func (r *TestRecord) addPass() {
	r.PassedCount++
	r.LastOutcome = true
}

func (r *TestRecord) addFail() {
	r.FailedCount++
	r.LastOutcome = false
}

func (r *TestRecord) clone() TestRecord {
	c := *r
	c.DetailHistory = append([]string(nil), r.DetailHistory...)
	return c
}

// Reporter aggregates test outcomes for a single run. One instance is shared
// by every case of the run; it is safe for concurrent use.
type Reporter struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*TestRecord
	// order keeps ids in first-seen order so summaries are stable.
	order []string
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithNow overrides the clock used to timestamp detail entries.
func WithNow(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReporter creates an empty run-scoped reporter.
func NewReporter(logger *zap.Logger, opts ...ReporterOption) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reporter{
		logger:  logger.Named("reporter"),
		now:     time.Now,
		records: make(map[string]*TestRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordTest adds one execution for id. The first call for an id fixes its
// name. When details are given a timestamped entry is appended to the history.
func (r *Reporter) RecordTest(id, name string, passed bool, details ...string) {
	detail := strings.TrimSpace(strings.Join(details, " "))

	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		rec = &TestRecord{ID: id, Name: name}
		r.records[id] = rec
		r.order = append(r.order, id)
	}
	if passed {
		rec.addPass()
	} else {
		rec.addFail()
	}
	if detail != "" {
		rec.DetailHistory = append(rec.DetailHistory,
			fmt.Sprintf("[%s] %s: %s", r.now().UTC().Format(time.RFC3339), outcomeLabel(passed), detail))
	}
	passes, fails := rec.PassedCount, rec.FailedCount
	r.mu.Unlock()

	fields := []zap.Field{
		zap.String("test_id", id),
		zap.String("name", name),
		zap.Uint("passed", passes),
		zap.Uint("failed", fails),
	}
	if detail != "" {
		fields = append(fields, zap.String("details", detail))
	}
	if passed {
		r.logger.Info("Test passed.", fields...)
	} else {
		r.logger.Warn("Test failed.", fields...)
	}
}

// Records returns copies of all records in first-seen order.
func (r *Reporter) Records() []TestRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TestRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].clone())
	}
	return out
}

// Record returns a copy of the record for id.
func (r *Reporter) Record(id string) (TestRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return TestRecord{}, false
	}
	return rec.clone(), true
}

// Reset drops every record.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.records = make(map[string]*TestRecord)
	r.order = nil
	r.mu.Unlock()
	r.logger.Debug("Reporter reset.")
}

func outcomeLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
