// Package errors provides structured error types and exit codes for Testyl.
package errors

import (
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess          = 0 // Success, all tests passed
	ExitRuntimeError     = 1 // Runtime error (test failed, run aborted, etc.)
	ExitConfigError      = 2 // Configuration error (invalid profile config, etc.)
	ExitEnvironmentError = 3 // Environment error (subprocess control lost, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindSchedule
	KindEnvironment
)

// TestylError is the base error type for Testyl.
type TestylError struct {
	Kind    ErrorKind
	Message string
	Test    string // Test identifier if applicable
	Profile string // Profile name if applicable
	Cause   error  // Underlying error
}

func (e *TestylError) Error() string {
	if e.Test != "" {
		return fmt.Sprintf("[%s] %s", e.Test, e.Message)
	}
	if e.Profile != "" {
		return fmt.Sprintf("profile %q: %s", e.Profile, e.Message)
	}
	return e.Message
}

func (e *TestylError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *TestylError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *TestylError {
	return &TestylError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *TestylError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *TestylError {
	return &TestylError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *TestylError {
	return Config(fmt.Sprintf(format, args...))
}

// Schedule creates a new scheduling error for a specific test.
// Scheduling errors describe admission failures (for example a test whose
// slot requirement can never be satisfied), not test failures.
func Schedule(test, message string) *TestylError {
	return &TestylError{
		Kind:    KindSchedule,
		Test:    test,
		Message: message,
	}
}

// Environment creates a new environment error.
func Environment(message string) *TestylError {
	return &TestylError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *TestylError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *TestylError {
	return &TestylError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// ProfileError creates a configuration error scoped to a profile.
func ProfileError(profile, message string) *TestylError {
	return &TestylError{
		Kind:    KindConfig,
		Profile: profile,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *TestylError {
	return &TestylError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if te, ok := err.(*TestylError); ok {
		return te.ExitCode()
	}
	return ExitRuntimeError
}
