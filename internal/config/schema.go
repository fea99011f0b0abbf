// Package config provides profile configuration loading and validation.
//
// A configuration file defines one or more named profiles. JSON is the
// primary format; YAML is accepted for hand-written configs. Loading fails
// closed: malformed filters, unknown fields, and invalid enum values all
// reject the whole file, never a partial profile.
package config

// Config represents a complete profile configuration file.
type Config struct {
	Profiles map[string]ProfileConfig `json:"profiles" yaml:"profiles"`
}

// ProfileConfig defines one named profile. All fields are optional; unset
// base fields are completed from compiled-in defaults so that every resolved
// policy has all fields populated.
type ProfileConfig struct {
	SlowTimeout   *SlowTimeoutConfig `json:"slow-timeout,omitempty" yaml:"slow-timeout,omitempty"`
	Retries       *RetriesConfig     `json:"retries,omitempty" yaml:"retries,omitempty"`
	FailureOutput string             `json:"failure-output,omitempty" yaml:"failure-output,omitempty"`
	FailFast      *bool              `json:"fail-fast,omitempty" yaml:"fail-fast,omitempty"`
	Overrides     []OverrideConfig   `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// SlowTimeoutConfig configures the soft-then-hard timeout escalation.
// Durations are strings like "60s", "10m", "2h" (integer plus unit suffix).
type SlowTimeoutConfig struct {
	Period         string `json:"period,omitempty" yaml:"period,omitempty"`
	TerminateAfter *int   `json:"terminate-after,omitempty" yaml:"terminate-after,omitempty"`
	GracePeriod    string `json:"grace-period,omitempty" yaml:"grace-period,omitempty"`
}

// RetriesConfig configures the retry loop.
type RetriesConfig struct {
	Backoff string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	Count   *int   `json:"count,omitempty" yaml:"count,omitempty"`
	Delay   string `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// OverrideConfig is a filter-scoped partial policy patch. Order within the
// overrides array is significant: later-declared matching overrides win
// field-by-field over earlier ones.
type OverrideConfig struct {
	Filter          string             `json:"filter" yaml:"filter"`
	SlowTimeout     *SlowTimeoutConfig `json:"slow-timeout,omitempty" yaml:"slow-timeout,omitempty"`
	Retries         *RetriesConfig     `json:"retries,omitempty" yaml:"retries,omitempty"`
	FailureOutput   string             `json:"failure-output,omitempty" yaml:"failure-output,omitempty"`
	FailFast        *bool              `json:"fail-fast,omitempty" yaml:"fail-fast,omitempty"`
	ThreadsRequired *int               `json:"threads-required,omitempty" yaml:"threads-required,omitempty"`
}
