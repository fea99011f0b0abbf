// Package testyl provides public constants and utilities for external tools
// integrating with Testyl.
package testyl

// Exit codes returned by the testyl CLI.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates every test passed.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure (test failed, run aborted, etc.).
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (invalid profile config,
	// malformed filter expression, etc.).
	ExitConfigError = 2

	// ExitEnvError indicates an environment error (lost control of a test
	// subprocess, etc.).
	ExitEnvError = 3
)
