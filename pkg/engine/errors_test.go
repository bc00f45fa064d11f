package engine

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestErrorSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid input", &InvalidInputError{URL: "x", Reason: "bad"}, ErrInvalidInput},
		{"no suitable", &NoSuitableProvidersError{Reason: "empty"}, ErrNoSuitableProviders},
		{"not found", &ProviderNotFoundError{Name: "x"}, ErrProviderNotFound},
		{"all failed", &AllProvidersFailedError{URL: "x"}, ErrAllProvidersFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%T, sentinel) = false", tt.err)
			}
			wrapped := errors.Join(errors.New("outer"), tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped %T, sentinel) = false", tt.err)
			}
		})
	}
}

func TestAllProvidersFailedErrorMessage(t *testing.T) {
	err := &AllProvidersFailedError{
		URL: "https://example.com",
		Attempts: []Attempt{
			{Provider: "a", Number: 1, Error: "refused", Elapsed: time.Millisecond},
			{Provider: "a", Number: 2, Error: "refused", Elapsed: time.Millisecond},
			{Provider: "b", Number: 1, Error: "timed out", Elapsed: time.Second},
		},
	}

	msg := err.Error()
	for _, want := range []string{"https://example.com", "a (attempt 1)", "a (attempt 2)", "b (attempt 1)", "refused", "timed out"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}

	names := err.ProviderNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ProviderNames() = %v, want [a b]", names)
	}
}

func TestProviderNotFoundErrorListsAvailable(t *testing.T) {
	err := &ProviderNotFoundError{Name: "missing", Available: []string{"one", "two"}}
	msg := err.Error()
	if !strings.Contains(msg, "one, two") {
		t.Errorf("message does not list available providers: %s", msg)
	}
}
