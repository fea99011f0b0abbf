// Package runner provides test execution with weighted slot scheduling,
// slow-timeout escalation, and retry supervision.
package runner

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	testylerrors "github.com/AndreyAkinshin/testyl/internal/errors"
	"github.com/AndreyAkinshin/testyl/internal/output"
	"github.com/AndreyAkinshin/testyl/internal/policy"
	"github.com/AndreyAkinshin/testyl/internal/report"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

const (
	// minTotalSlots ensures at least one slot so admission can always make
	// progress for single-slot tests.
	minTotalSlots = 1

	// maxTotalSlots caps TESTYL_THREADS at 256 slots. Beyond this,
	// goroutine scheduling overhead outweighs parallelism for
	// subprocess-bound test execution.
	maxTotalSlots = 256
)

// Runner executes test lists: a supervisor for per-test execution paired
// with a writer for progress output. Slot-allocation state is local to each
// Run call, so one Runner can serve sequential runs.
type Runner struct {
	sup *Supervisor
	out *output.Writer
}

// New creates a runner executing attempts through exec.
func New(exec Executor, out *output.Writer) *Runner {
	return &Runner{sup: NewSupervisor(exec, out), out: out}
}

// Run executes the test list under the profile's policies with totalSlots of
// concurrency budget and returns the aggregated report.
//
// Each test holds its resolved threads-required slots for its entire
// supervised lifetime, retries included. Admission scans pending tests in
// discovery order and starts every test that currently fits; a test whose
// requirement exceeds the total budget becomes an infrastructure failure
// without aborting the run. After the first non-passed final status of a
// test whose policy sets fail-fast, no new tests are admitted and in-flight
// tests drain.
//
// The report is valid even on early abort. A non-nil error means the run
// itself broke (lost subprocess control), not that tests failed; test
// failures are the report's business.
func (r *Runner) Run(ctx context.Context, list []tests.TestID, profile *policy.Profile, totalSlots int) (*report.RunReport, error) {
	if totalSlots < minTotalSlots {
		return nil, testylerrors.Configf("total slots must be at least %d, got %d", minTotalSlots, totalSlots)
	}

	resolver := policy.NewResolver(profile)
	rep := report.New(list)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		free     = totalSlots
		stopped  bool
		fatalErr error
	)
	cond := sync.NewCond(&mu)

	// Cancellation must wake a blocked admission loop.
	go func() {
		<-ctx.Done()
		mu.Lock()
		if !stopped {
			stopped = true
			rep.MarkAborted("cancelled")
		}
		mu.Unlock()
		cond.Broadcast()
	}()

	runTest := func(id tests.TestID, pol policy.Policy) {
		defer wg.Done()
		attempts, err := r.sup.Supervise(ctx, id, pol)
		final := attempts[len(attempts)-1]
		rep.RecordFinal(id, final.Result, attempts)

		mu.Lock()
		free += pol.ThreadsRequired
		if err != nil {
			if fatalErr == nil {
				fatalErr = err
			}
			stopped = true
		} else if final.Result != report.StatusPassed && pol.FailFast && !stopped {
			stopped = true
			rep.MarkAborted("fail-fast")
		}
		mu.Unlock()
		cond.Broadcast()

		if err != nil {
			cancel()
		}
	}

	pending := make([]tests.TestID, len(list))
	copy(pending, list)

	mu.Lock()
	for len(pending) > 0 && !stopped {
		progress := false
		remaining := pending[:0]
		for _, id := range pending {
			if stopped {
				remaining = append(remaining, id)
				continue
			}
			pol := resolver.Resolve(id)
			if pol.ThreadsRequired > totalSlots {
				reason := fmt.Sprintf("requires %d slots, run has %d", pol.ThreadsRequired, totalSlots)
				rep.RecordInfraFailure(id, reason)
				r.out.Warning("%s: %s", id, reason)
				if pol.FailFast {
					stopped = true
					rep.MarkAborted("fail-fast")
				}
				progress = true
				continue
			}
			if pol.ThreadsRequired <= free {
				free -= pol.ThreadsRequired
				wg.Add(1)
				go runTest(id, pol)
				progress = true
				continue
			}
			remaining = append(remaining, id)
		}
		pending = remaining
		if !progress && len(pending) > 0 && !stopped {
			cond.Wait()
		}
	}
	if len(pending) > 0 {
		aborted, _ := rep.Aborted()
		if !aborted {
			rep.MarkAborted("fail-fast")
		}
	}
	mu.Unlock()

	wg.Wait()

	// The run is complete. The deferred cancel wakes the cancellation
	// watcher; stopped keeps it from marking a finished run aborted.
	mu.Lock()
	stopped = true
	err := fatalErr
	mu.Unlock()

	rep.Finalize()
	return rep, err
}

// DefaultTotalSlots returns the slot budget to use when none is given:
// TESTYL_THREADS if set and valid, otherwise the CPU count. The result is
// always at least one.
func DefaultTotalSlots(out *output.Writer) int {
	env := os.Getenv("TESTYL_THREADS")
	if env == "" {
		return defaultSlotCount()
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		out.Warning("invalid TESTYL_THREADS value %q (not a number), using default", env)
		return defaultSlotCount()
	}
	if n < minTotalSlots || n > maxTotalSlots {
		out.Warning("TESTYL_THREADS=%d out of range [%d-%d], using default", n, minTotalSlots, maxTotalSlots)
		return defaultSlotCount()
	}
	return n
}

func defaultSlotCount() int {
	return max(minTotalSlots, runtime.NumCPU())
}
