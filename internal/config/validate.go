package config

import (
	"fmt"
	"regexp"

	"github.com/AndreyAkinshin/testyl/internal/filter"
)

// profileNamePattern restricts profile names to lowercase letters, digits,
// and hyphens, starting with a letter.
var profileNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for semantic errors. The first error found
// fails the whole load; there are no partial profiles.
func Validate(cfg *Config) error {
	if len(cfg.Profiles) == 0 {
		return &ValidationError{Field: "profiles", Message: "at least one profile is required"}
	}

	for name, profile := range cfg.Profiles {
		if !profileNamePattern.MatchString(name) {
			return &ValidationError{
				Field:   fmt.Sprintf("profiles.%s", name),
				Message: "profile name must match pattern ^[a-z][a-z0-9-]*$ (lowercase letters, digits, hyphens)",
			}
		}
		if err := validateProfile(name, profile); err != nil {
			return err
		}
	}

	return nil
}

func validateProfile(name string, p ProfileConfig) error {
	field := func(suffix string) string {
		return fmt.Sprintf("profiles.%s.%s", name, suffix)
	}

	if err := validateSlowTimeout(field("slow-timeout"), p.SlowTimeout); err != nil {
		return err
	}
	if err := validateRetries(field("retries"), p.Retries); err != nil {
		return err
	}
	if err := validateFailureOutput(field("failure-output"), p.FailureOutput); err != nil {
		return err
	}

	for i, ov := range p.Overrides {
		if err := validateOverride(fmt.Sprintf("profiles.%s.overrides[%d]", name, i), ov); err != nil {
			return err
		}
	}

	return nil
}

func validateOverride(field string, ov OverrideConfig) error {
	// An absent filter key and an empty filter expression are both legal and
	// both mean "matches all tests"; only malformed expressions are errors.
	if _, err := filter.Parse(ov.Filter); err != nil {
		return &ValidationError{Field: field + ".filter", Message: err.Error()}
	}

	if err := validateSlowTimeout(field+".slow-timeout", ov.SlowTimeout); err != nil {
		return err
	}
	if err := validateRetries(field+".retries", ov.Retries); err != nil {
		return err
	}
	if err := validateFailureOutput(field+".failure-output", ov.FailureOutput); err != nil {
		return err
	}
	if ov.ThreadsRequired != nil && *ov.ThreadsRequired < 1 {
		return &ValidationError{Field: field + ".threads-required", Message: "must be at least 1"}
	}

	return nil
}

func validateSlowTimeout(field string, st *SlowTimeoutConfig) error {
	if st == nil {
		return nil
	}
	if st.Period != "" {
		if _, err := ParseDuration(st.Period); err != nil {
			return &ValidationError{Field: field + ".period", Message: err.Error()}
		}
	}
	if st.TerminateAfter != nil && *st.TerminateAfter < 1 {
		return &ValidationError{Field: field + ".terminate-after", Message: "must be at least 1"}
	}
	if st.GracePeriod != "" {
		if _, err := ParseDuration(st.GracePeriod); err != nil {
			return &ValidationError{Field: field + ".grace-period", Message: err.Error()}
		}
	}
	return nil
}

func validateRetries(field string, r *RetriesConfig) error {
	if r == nil {
		return nil
	}
	if r.Backoff != "" && r.Backoff != "fixed" && r.Backoff != "exponential" {
		return &ValidationError{Field: field + ".backoff", Message: `must be "fixed" or "exponential"`}
	}
	if r.Count != nil && *r.Count < 0 {
		return &ValidationError{Field: field + ".count", Message: "must not be negative"}
	}
	if r.Delay != "" {
		if _, err := ParseDuration(r.Delay); err != nil {
			return &ValidationError{Field: field + ".delay", Message: err.Error()}
		}
	}
	return nil
}

func validateFailureOutput(field, value string) error {
	switch value {
	case "", "immediate", "final", "never":
		return nil
	default:
		return &ValidationError{Field: field, Message: `must be "immediate", "final", or "never"`}
	}
}
