package runner

import "time"

// SetEscalation overrides kill escalation tuning so tests exercising the
// lost-control path do not wait out production timeouts.
func (s *Supervisor) SetEscalation(attempts int, wait time.Duration) {
	s.killAttempts = attempts
	s.killWait = wait
}

// TuneEscalation applies SetEscalation to the runner's supervisor.
func (r *Runner) TuneEscalation(attempts int, wait time.Duration) {
	r.sup.SetEscalation(attempts, wait)
}

// RetryDelay exposes backoff computation to the external test package.
var RetryDelay = retryDelay

