// Package report collects per-test outcomes into a run report.
//
// The RunReport is the single owner of aggregated run state. Outcomes arrive
// concurrently from supervisors in completion order; the report attributes
// each one to its test and keeps discovery order for presentation. A run
// aborted early (fail-fast, interrupt, fatal error) still finalizes into a
// best-effort report in which unexecuted tests appear as not run.
package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// Status is a test or attempt result.
//
// Attempt outcomes only ever carry StatusPassed, StatusFailed,
// StatusTimedOut, or StatusTerminated. StatusNotRun and StatusInfra exist
// only as final statuses assigned by the scheduler.
type Status string

const (
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed_out"
	StatusTerminated Status = "terminated"
	StatusNotRun     Status = "not_run"
	StatusInfra      Status = "infra_failure"
)

// Outcome is the immutable record of a single attempt.
type Outcome struct {
	Test           tests.TestID
	Attempt        int
	Result         Status
	Duration       time.Duration
	CapturedOutput []byte
}

// TestReport is the final per-test record: derived status plus the full
// attempt log.
type TestReport struct {
	Test     tests.TestID
	Status   Status
	Attempts []Outcome
	Reason   string // populated for infrastructure failures
}

// RunReport aggregates final statuses for one run. Safe for concurrent
// recording; Finalize snapshots it.
type RunReport struct {
	mu       sync.Mutex
	order    []string
	byKey    map[string]*TestReport
	started  time.Time
	finished time.Time
	aborted  bool
	reason   string
}

// New creates a report pre-registered with every test of the run, all marked
// not run. Tests the scheduler never admits keep that status.
func New(list []tests.TestID) *RunReport {
	r := &RunReport{
		byKey:   make(map[string]*TestReport, len(list)),
		started: time.Now(),
	}
	for _, id := range list {
		key := id.Key()
		if _, ok := r.byKey[key]; ok {
			continue
		}
		r.order = append(r.order, key)
		r.byKey[key] = &TestReport{Test: id, Status: StatusNotRun}
	}
	return r
}

// RecordFinal stores a test's final status together with its attempt log.
func (r *RunReport) RecordFinal(id tests.TestID, status Status, attempts []Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.byKey[id.Key()]; ok {
		tr.Status = status
		tr.Attempts = attempts
	}
}

// RecordInfraFailure marks a test that could not be executed at all, for
// example because its slot requirement exceeds the run's total capacity.
func (r *RunReport) RecordInfraFailure(id tests.TestID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.byKey[id.Key()]; ok {
		tr.Status = StatusInfra
		tr.Reason = reason
	}
}

// MarkAborted records that the run stopped before admitting every test.
func (r *RunReport) MarkAborted(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = true
	r.reason = reason
}

// Finalize closes the report. Further recording is still safe but a run is
// expected to finalize exactly once, after all in-flight tests drained.
func (r *RunReport) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = time.Now()
}

// Results returns per-test reports in discovery order.
func (r *RunReport) Results() []TestReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TestReport, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byKey[key])
	}
	return out
}

// Aborted reports whether the run stopped early, and why.
func (r *RunReport) Aborted() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted, r.reason
}

// Duration returns the wall-clock span of the run. Before Finalize it
// measures up to now.
func (r *RunReport) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished.IsZero() {
		return time.Since(r.started)
	}
	return r.finished.Sub(r.started)
}

// Counts summarizes final statuses.
type Counts struct {
	Total      int
	Passed     int
	Failed     int
	TimedOut   int
	Terminated int
	NotRun     int
	Infra      int
}

// Counts tallies final statuses across all tests.
func (r *RunReport) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c Counts
	for _, key := range r.order {
		c.Total++
		switch r.byKey[key].Status {
		case StatusPassed:
			c.Passed++
		case StatusFailed:
			c.Failed++
		case StatusTimedOut:
			c.TimedOut++
		case StatusTerminated:
			c.Terminated++
		case StatusNotRun:
			c.NotRun++
		case StatusInfra:
			c.Infra++
		}
	}
	return c
}

// Failed reports whether the run as a whole failed. Any final status other
// than passed fails the run, including tests the run never got to.
func (r *RunReport) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.order {
		if r.byKey[key].Status != StatusPassed {
			return true
		}
	}
	return false
}

// String renders a one-line summary, e.g. "12 passed, 1 failed, 2 not run".
func (c Counts) String() string {
	s := fmt.Sprintf("%d passed", c.Passed)
	if c.Failed > 0 {
		s += fmt.Sprintf(", %d failed", c.Failed)
	}
	if c.TimedOut > 0 {
		s += fmt.Sprintf(", %d timed out", c.TimedOut)
	}
	if c.Terminated > 0 {
		s += fmt.Sprintf(", %d terminated", c.Terminated)
	}
	if c.Infra > 0 {
		s += fmt.Sprintf(", %d infrastructure failures", c.Infra)
	}
	if c.NotRun > 0 {
		s += fmt.Sprintf(", %d not run", c.NotRun)
	}
	return s
}
