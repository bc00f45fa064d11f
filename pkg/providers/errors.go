package providers

import (
	"fmt"
	"time"
)

// FetchError reports a failed fetch attempt against one provider. It
// wraps transport errors, bad statuses, and contained panics.
type FetchError struct {
	// Provider is the name of the provider that failed.
	Provider string

	// StatusCode is the HTTP status of the failing response, when one
	// was received. Zero when the failure happened before a response.
	StatusCode int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: fetch failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: fetch failed: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s: fetch failed: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError creates a FetchError.
func NewFetchError(provider string, statusCode int, message string, cause error) *FetchError {
	return &FetchError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// TimeoutError reports an attempt that exceeded its deadline. It is an
// ordinary attempt failure and participates normally in fallback.
type TimeoutError struct {
	// Provider is the name of the provider that timed out.
	Provider string

	// Timeout is the deadline that elapsed.
	Timeout time.Duration

	// Cause is the deadline error from the transport or context.
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: timed out after %s", e.Provider, e.Timeout)
}

// Unwrap returns the underlying deadline error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(provider string, timeout time.Duration, cause error) *TimeoutError {
	return &TimeoutError{
		Provider: provider,
		Timeout:  timeout,
		Cause:    cause,
	}
}

// ContentError reports a response that arrived but failed validation:
// the body was shorter than the configured minimum, or a required
// selector was absent. Some relay backends return a technically-200
// placeholder body on soft failure, so a status check alone is not
// enough.
type ContentError struct {
	// Provider is the name of the provider whose response failed.
	Provider string

	// Length is the received body length in bytes.
	Length int

	// MinLength is the configured minimum body length.
	MinLength int

	// Selector is the required selector that was missing, when the
	// failure was a selector check.
	Selector string
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("provider %s: response missing required selector %q", e.Provider, e.Selector)
	}
	return fmt.Sprintf("provider %s: response body too short: %d bytes (minimum %d)", e.Provider, e.Length, e.MinLength)
}

// ProbeError reports a failed availability probe. It never crosses the
// provider boundary; HealthStatus converts it into an unhealthy verdict.
type ProbeError struct {
	// Provider is the name of the probed provider.
	Provider string

	// Cause is the probe failure.
	Cause error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("provider %s: availability probe failed: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying probe failure.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}
