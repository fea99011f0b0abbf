// Package policy defines execution policies, profiles, and per-test policy
// resolution.
//
// A Profile bundles a fully-populated base Policy with an ordered list of
// override rules. Each rule pairs a filter expression with a sparse policy
// patch; resolution merges matching patches onto the base field-by-field in
// declaration order, so later-declared matching rules win per field
// (last-match-wins). Field-level merge lets one override set the slow
// timeout and another independently set the slot requirement for overlapping
// test sets without clobbering each other.
package policy

import (
	"time"

	"github.com/AndreyAkinshin/testyl/internal/filter"
)

// Backoff selects the retry delay progression.
type Backoff string

const (
	// BackoffFixed waits the same delay before every retry.
	BackoffFixed Backoff = "fixed"
	// BackoffExponential doubles the delay before each retry.
	BackoffExponential Backoff = "exponential"
)

// FailureOutput controls when captured output of failed attempts is shown.
// It affects reporting only, never retry or pass/fail logic.
type FailureOutput string

const (
	// FailureOutputImmediate emits output on each failed attempt.
	FailureOutputImmediate FailureOutput = "immediate"
	// FailureOutputFinal emits output once, at the test's final status.
	FailureOutputFinal FailureOutput = "final"
	// FailureOutputNever suppresses failure output.
	FailureOutputNever FailureOutput = "never"
)

// SlowTimeout describes the soft-then-hard timeout escalation for a test.
// A timer fires every Period; each firing emits a slow warning, and after
// TerminateAfter firings the test is sent a termination signal. If it is
// still alive GracePeriod later, it is killed forcefully.
type SlowTimeout struct {
	Period         time.Duration
	TerminateAfter int
	GracePeriod    time.Duration
}

// Policy is the effective execution policy for one test. Every resolved
// Policy used for execution has all fields populated; sparseness exists only
// at the override level.
type Policy struct {
	SlowTimeout     SlowTimeout
	RetryBackoff    Backoff
	RetryCount      int
	RetryDelay      time.Duration
	FailureOutput   FailureOutput
	FailFast        bool
	ThreadsRequired int
}

// Default returns the compiled-in base policy. Profile bases that omit
// fields are completed from these values before resolution, keeping the
// all-fields-populated invariant.
func Default() Policy {
	return Policy{
		SlowTimeout: SlowTimeout{
			Period:         60 * time.Second,
			TerminateAfter: 2,
			GracePeriod:    10 * time.Second,
		},
		RetryBackoff:    BackoffFixed,
		RetryCount:      0,
		RetryDelay:      time.Second,
		FailureOutput:   FailureOutputImmediate,
		FailFast:        false,
		ThreadsRequired: 1,
	}
}

// Patch is a sparse policy: every field is optional. Present fields
// overwrite the corresponding field of the policy the patch is applied to.
type Patch struct {
	SlowTimeoutPeriod *time.Duration
	TerminateAfter    *int
	GracePeriod       *time.Duration
	RetryBackoff      *Backoff
	RetryCount        *int
	RetryDelay        *time.Duration
	FailureOutput     *FailureOutput
	FailFast          *bool
	ThreadsRequired   *int
}

// Apply merges the patch onto the policy, field by field.
func (p Patch) Apply(to *Policy) {
	if p.SlowTimeoutPeriod != nil {
		to.SlowTimeout.Period = *p.SlowTimeoutPeriod
	}
	if p.TerminateAfter != nil {
		to.SlowTimeout.TerminateAfter = *p.TerminateAfter
	}
	if p.GracePeriod != nil {
		to.SlowTimeout.GracePeriod = *p.GracePeriod
	}
	if p.RetryBackoff != nil {
		to.RetryBackoff = *p.RetryBackoff
	}
	if p.RetryCount != nil {
		to.RetryCount = *p.RetryCount
	}
	if p.RetryDelay != nil {
		to.RetryDelay = *p.RetryDelay
	}
	if p.FailureOutput != nil {
		to.FailureOutput = *p.FailureOutput
	}
	if p.FailFast != nil {
		to.FailFast = *p.FailFast
	}
	if p.ThreadsRequired != nil {
		to.ThreadsRequired = *p.ThreadsRequired
	}
}

// OverrideRule scopes a policy patch to the tests matched by a filter
// expression. Rules are immutable once a profile is loaded.
type OverrideRule struct {
	Filter filter.Expr
	Source string // original filter text, kept for diagnostics
	Patch  Patch
}

// Profile is a named bundle of a base policy plus ordered overrides.
type Profile struct {
	Name      string
	Base      Policy
	Overrides []OverrideRule
}
