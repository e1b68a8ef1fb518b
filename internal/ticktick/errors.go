package ticktick

import (
	"errors"
	"fmt"
	"time"
)

// AuthError indicates the stored credentials are invalid or revoked. It is
// fatal and non-retryable: the user must re-run the interactive
// authorization flow (ticktick-mcp auth).
type AuthError struct {
	// Op is the operation that failed (e.g., "refresh token", "GET /project")
	Op string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("ticktick auth failed during %s: %v (run 'ticktick-mcp auth' to re-authorize)", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a resource is absent on the remote side. Callers
// branch on it with errors.As; during deletion verification absence is the
// expected outcome, not a failure.
type NotFoundError struct {
	// Kind is the resource kind ("task", "project", "resource")
	Kind string

	// ID is the identifier that was looked up
	ID string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("ticktick %s %s not found", e.Kind, e.ID)
	}
	return fmt.Sprintf("ticktick %s not found", e.Kind)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RateLimitError indicates the remote service throttled the request and
// bounded backoff retries were exhausted.
type RateLimitError struct {
	// Op is the operation that was throttled
	Op string

	// Attempts is the number of attempts made before giving up
	Attempts int

	// RetryAfter is the last hint the server gave, zero when none was sent
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("ticktick rate limited during %s after %d attempts (server asks to retry after %s)", e.Op, e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("ticktick rate limited during %s after %d attempts", e.Op, e.Attempts)
}

// TransientError indicates a network or timeout failure that persisted
// through bounded retries. The operation may succeed if repeated later.
type TransientError struct {
	// Op is the operation that failed
	Op string

	// Attempts is the number of attempts made
	Attempts int

	// Err is the underlying transport error
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("ticktick %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *TransientError) Unwrap() error {
	return e.Err
}

// APIError carries a remote 4xx/5xx response verbatim. It is never retried.
type APIError struct {
	// Op is the operation that failed
	Op string

	// StatusCode is the HTTP status returned by the API
	StatusCode int

	// Message is the response body, verbatim
	Message string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ticktick %s returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ticktick %s returned %d", e.Op, e.StatusCode)
}

// ValidationError indicates a request was rejected locally before any remote
// call was attempted.
type ValidationError struct {
	// Field is the offending input field
	Field string

	// Reason describes why the value was rejected
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
