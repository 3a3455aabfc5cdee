// Package exitcodes defines standard exit codes so cron jobs and CI wrappers
// can distinguish retryable failures from ones that need operator attention.
package exitcodes

import (
	"context"
	"errors"
	"os"
	"strings"
)

const (
	// Success - migration completed with every record accounted for.
	// Per-record failures let the run finish but it then exits with
	// TransferError so cron/CI notices the partial result.
	Success = 0

	// ConfigError - configuration or credential setup errors (don't retry)
	ConfigError = 1

	// AuthError - a platform rejected our credentials (don't retry)
	AuthError = 2

	// TransferError - source read or destination write failed fatally
	TransferError = 3

	// Cancelled - user cancelled via SIGINT/SIGTERM (safe to re-run)
	Cancelled = 5

	// StateError - ID map or run-history persistence failed (needs attention:
	// continuing without durable state would silently lose resumability)
	StateError = 6

	// IOError - other file I/O errors (safe to re-run)
	IOError = 7
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// FromError determines the appropriate exit code for an error.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return IOError
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, []string{
		"no such file",
		"file not found",
		"permission denied",
		"is a directory",
		"not a directory",
	}) {
		return IOError
	}

	if containsAny(errStr, []string{
		"yaml:",
		"unmarshal",
		"parsing config",
		"invalid config",
		"is required",
		"missing required",
	}) {
		return ConfigError
	}

	if containsAny(errStr, []string{
		"authentication",
		"unauthorized",
		"invalid token",
	}) {
		return AuthError
	}

	if containsAny(errStr, []string{
		"id map",
		"state file",
		"run history",
	}) {
		return StateError
	}

	if containsAny(errStr, []string{
		"cancel",
		"interrupt",
	}) {
		return Cancelled
	}

	// Default to transfer error for unknown errors
	return TransferError
}

// IsRecoverable returns true if re-running after the error is safe and useful.
func IsRecoverable(code int) bool {
	switch code {
	case Cancelled, IOError, TransferError:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the exit code.
func Description(code int) string {
	switch code {
	case Success:
		return "success"
	case ConfigError:
		return "configuration error"
	case AuthError:
		return "authentication error"
	case TransferError:
		return "transfer error (recoverable)"
	case Cancelled:
		return "cancelled (recoverable)"
	case StateError:
		return "state error"
	case IOError:
		return "I/O error (recoverable)"
	default:
		return "unknown error"
	}
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
