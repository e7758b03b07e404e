// Package errors provides structured error types for the allocation timeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")

	// Gesture errors.
	ErrGestureActive  = errors.New("a drag gesture is already active")
	ErrNoGesture      = errors.New("no drag gesture is active")
	ErrCommitRejected = errors.New("candidate update rejected")

	// ErrOutOfWindow marks an allocation with no geometry in the visible window.
	ErrOutOfWindow = errors.New("allocation outside visible window")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// RemoteError is a data service failure together with the request that caused it.
type RemoteError struct {
	Op      string
	Context map[string]string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("data service %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError wraps err as a failure of op. A nil err yields nil.
func NewRemoteError(op string, ctx map[string]string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Context: ctx, Err: err}
}

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
