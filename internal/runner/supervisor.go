package runner

import (
	"context"
	"time"

	testylerrors "github.com/AndreyAkinshin/testyl/internal/errors"
	"github.com/AndreyAkinshin/testyl/internal/output"
	"github.com/AndreyAkinshin/testyl/internal/policy"
	"github.com/AndreyAkinshin/testyl/internal/report"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

const (
	// maxKillAttempts bounds forceful-kill escalation. A process that
	// survives this many kills indicates lost subprocess control, which
	// aborts the whole run.
	maxKillAttempts = 3

	// killWait is how long each kill attempt waits for the process to
	// actually exit before escalating again.
	killWait = 5 * time.Second

	// maxBackoffDelay caps exponential retry delays.
	maxBackoffDelay = time.Hour
)

// Supervisor runs one test under its resolved policy: per-attempt slow
// timeout escalation, the retry loop, and failure-output reporting. One
// supervisor instance is shared across tests; it holds no per-test state.
type Supervisor struct {
	exec Executor
	out  *output.Writer

	// Escalation tuning, defaulted by NewSupervisor. Tests shorten these.
	killAttempts int
	killWait     time.Duration
}

// NewSupervisor creates a supervisor executing attempts through exec.
func NewSupervisor(exec Executor, out *output.Writer) *Supervisor {
	return &Supervisor{
		exec:         exec,
		out:          out,
		killAttempts: maxKillAttempts,
		killWait:     killWait,
	}
}

// Supervise runs the test to its final status. It returns the per-attempt
// outcome log; the last entry is the final attempt, and the test passed iff
// some attempt passed (the retry loop stops at the first pass).
//
// The returned error is nil for ordinary failures, which are represented in
// the outcome log. A non-nil error means the supervisor lost control of the
// subprocess and the run must abort.
func (s *Supervisor) Supervise(ctx context.Context, test tests.TestID, pol policy.Policy) ([]report.Outcome, error) {
	maxAttempts := pol.RetryCount + 1
	var attempts []report.Outcome

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s.out.TestStart(test.String())
		oc, fatal := s.runAttempt(ctx, test, pol, attempt)
		attempts = append(attempts, oc)
		if fatal != nil {
			return attempts, fatal
		}

		if oc.Result == report.StatusPassed {
			s.out.TestPassed(test.String(), oc.Duration)
			return attempts, nil
		}

		if pol.FailureOutput == policy.FailureOutputImmediate {
			s.out.FailureOutput(test.String(), attempt, oc.CapturedOutput)
		}

		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		delay := retryDelay(pol, attempt)
		s.out.TestRetry(test.String(), attempt, delay)
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	final := attempts[len(attempts)-1]
	s.out.TestFailed(test.String(), string(final.Result), final.Duration)
	if pol.FailureOutput == policy.FailureOutputFinal {
		s.out.FailureOutput(test.String(), final.Attempt, final.CapturedOutput)
	}
	return attempts, nil
}

// runAttempt drives one attempt through the running state: it finishes as
// passed or failed on its own, as timed out after slow-timeout escalation,
// or as terminated when the run is cancelled underneath it.
func (s *Supervisor) runAttempt(ctx context.Context, test tests.TestID, pol policy.Policy, attempt int) (report.Outcome, error) {
	start := time.Now()
	oc := report.Outcome{Test: test, Attempt: attempt}

	proc, err := s.exec.Start(ctx, test)
	if err != nil {
		// Spawn failure is an ordinary failed attempt: it consumes a
		// retry and never crashes the scheduler.
		oc.Result = report.StatusFailed
		oc.Duration = time.Since(start)
		oc.CapturedOutput = []byte(err.Error())
		return oc, nil
	}

	done := make(chan waitResult, 1)
	go func() {
		passed, out, werr := proc.Wait()
		done <- waitResult{passed: passed, output: out, err: werr}
	}()

	ticker := time.NewTicker(pol.SlowTimeout.Period)
	defer ticker.Stop()

	periods := 0
	for {
		select {
		case r := <-done:
			oc.Duration = time.Since(start)
			oc.CapturedOutput = r.output
			if r.err != nil {
				oc.Result = report.StatusFailed
				oc.CapturedOutput = append(oc.CapturedOutput, []byte("\nwait: "+r.err.Error())...)
			} else if r.passed {
				oc.Result = report.StatusPassed
			} else {
				oc.Result = report.StatusFailed
			}
			return oc, nil

		case <-ticker.C:
			periods++
			s.out.SlowWarning(test.String(), time.Duration(periods)*pol.SlowTimeout.Period)
			if periods >= pol.SlowTimeout.TerminateAfter {
				return s.shutdown(test, proc, done, pol.SlowTimeout.GracePeriod, report.StatusTimedOut, start, attempt)
			}

		case <-ctx.Done():
			return s.shutdown(test, proc, done, pol.SlowTimeout.GracePeriod, report.StatusTerminated, start, attempt)
		}
	}
}

type waitResult struct {
	passed bool
	output []byte
	err    error
}

// shutdown escalates from a termination signal, through the grace period, to
// bounded forceful kills. The attempt keeps the escalation result even if
// the process happens to exit cleanly under the signal.
func (s *Supervisor) shutdown(test tests.TestID, proc Process, done <-chan waitResult, grace time.Duration, result report.Status, start time.Time, attempt int) (report.Outcome, error) {
	oc := report.Outcome{Test: test, Attempt: attempt, Result: result}

	if err := proc.Terminate(); err == nil {
		select {
		case r := <-done:
			oc.Duration = time.Since(start)
			oc.CapturedOutput = r.output
			return oc, nil
		case <-time.After(grace):
		}
	}

	for i := 0; i < s.killAttempts; i++ {
		if err := proc.Kill(); err != nil {
			continue
		}
		select {
		case r := <-done:
			oc.Duration = time.Since(start)
			oc.CapturedOutput = r.output
			return oc, nil
		case <-time.After(s.killWait):
		}
	}

	oc.Duration = time.Since(start)
	return oc, testylerrors.Schedule(test.String(),
		"subprocess survived forceful kill; aborting run")
}

// retryDelay computes the wait before the retry following the given failed
// attempt number (1-based).
func retryDelay(pol policy.Policy, failedAttempt int) time.Duration {
	if pol.RetryBackoff != policy.BackoffExponential {
		return pol.RetryDelay
	}
	delay := pol.RetryDelay
	for i := 1; i < failedAttempt; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	return delay
}

// sleepCtx waits out d unless the context is cancelled first. It reports
// whether the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
