package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthError means the platform rejected our credentials (401/403). It is
// never retried: re-sending a bad token only burns rate budget.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d)", e.Status)
}

// APIError is a non-auth rejection from the platform. Callers inspect Status
// and Body to detect specific conditions such as a duplicate-email conflict.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, body)
}

// transientError wraps a retryable failure (429, 5xx, network error) along
// with an optional server-requested wait.
type transientError struct {
	err        error
	retryAfter time.Duration
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// IsConflict reports whether err is a duplicate-record rejection
// (409 Conflict or 422 Unprocessable Entity).
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || apiErr.Status == http.StatusUnprocessableEntity
}
