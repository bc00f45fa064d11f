package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fetchgate/pkg/providers"
)

// Common engine errors that can be checked with errors.Is().
var (
	// ErrInvalidInput is returned for malformed or disallowed URLs,
	// before any provider is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSuitableProviders is returned when filtering leaves zero
	// candidates. A configuration or capability mismatch, not a
	// transient failure.
	ErrNoSuitableProviders = errors.New("no suitable providers")

	// ErrAllProvidersFailed is returned when every ranked candidate
	// exhausted its retries.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrProviderNotFound is returned when a named provider is not in
	// the registry.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrEngineClosed is returned for calls after Close.
	ErrEngineClosed = errors.New("engine is closed")
)

// InvalidInputError rejects a request before any provider is touched:
// the URL is malformed, uses an unsupported scheme, or is disallowed
// by the robots gate.
type InvalidInputError struct {
	// URL is the rejected input.
	URL string

	// Reason says what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.URL, e.Reason)
}

// Is implements error matching for errors.Is().
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NoSuitableProvidersError is returned when the enabled-provider
// allow-list and the caller's required capabilities leave no candidate.
type NoSuitableProvidersError struct {
	// Reason says which filter emptied the set.
	Reason string

	// Require echoes the caller's capability requirements.
	Require providers.Requirements
}

// Error implements the error interface.
func (e *NoSuitableProvidersError) Error() string {
	return fmt.Sprintf("no suitable providers: %s", e.Reason)
}

// Is implements error matching for errors.Is().
func (e *NoSuitableProvidersError) Is(target error) bool {
	return target == ErrNoSuitableProviders
}

// ProviderNotFoundError is returned when TestProvider names a provider
// that is not registered.
type ProviderNotFoundError struct {
	// Name is the requested provider.
	Name string

	// Available lists the registered provider names.
	Available []string
}

// Error implements the error interface.
func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Is implements error matching for errors.Is().
func (e *ProviderNotFoundError) Is(target error) bool {
	return target == ErrProviderNotFound
}

// Attempt records one failed fetch attempt during a fallback loop. It
// exists only for the duration of the loop; on success the records are
// discarded, on exhaustion they become the AllProvidersFailedError.
type Attempt struct {
	// Provider is the provider that failed.
	Provider string `json:"provider"`

	// Number is the attempt's ordinal within that provider's retry
	// loop, starting at 1.
	Number int `json:"number"`

	// Error is the failure message.
	Error string `json:"error"`

	// Elapsed is how long the attempt took.
	Elapsed time.Duration `json:"elapsed"`
}

// AllProvidersFailedError is the terminal failure: every ranked
// candidate exhausted its retries. The message enumerates every
// provider and failure reason so operators can see why each one
// failed, not just that all did.
type AllProvidersFailedError struct {
	// URL is the request target.
	URL string

	// Attempts holds every failed attempt in order.
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all providers failed for %q: ", e.URL)
	for i, a := range e.Attempts {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s (attempt %d): %s", a.Provider, a.Number, a.Error)
	}
	return sb.String()
}

// Is implements error matching for errors.Is().
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// ProviderNames returns the distinct provider names in attempt order.
func (e *AllProvidersFailedError) ProviderNames() []string {
	seen := make(map[string]bool, len(e.Attempts))
	var names []string
	for _, a := range e.Attempts {
		if !seen[a.Provider] {
			seen[a.Provider] = true
			names = append(names, a.Provider)
		}
	}
	return names
}
