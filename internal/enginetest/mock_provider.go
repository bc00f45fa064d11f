// Package enginetest provides scriptable test doubles shared by the
// engine, health, and provider test suites.
package enginetest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fetchgate/pkg/providers"
)

// DefaultContent is a plausible HTML body long enough to pass content
// validation in tests.
var DefaultContent = "<html><head><title>fixture</title></head><body>" +
	strings.Repeat("<p>fixture paragraph</p>", 16) + "</body></html>"

// MockProvider is a scriptable Provider. It runs fetches through the
// real instrumented base, so metrics behave exactly as they do for
// production providers.
type MockProvider struct {
	*providers.Base

	mu          sync.Mutex
	content     string
	statusCode  int
	failuresAt  int // fail the first N fetches, then succeed
	failAlways  bool
	failMessage string
	panicOnce   bool
	delay       time.Duration
	probeErr    error

	fetchCalls atomic.Int64
	probeCalls atomic.Int64
	closed     atomic.Bool
}

// NewMockProvider creates a mock that succeeds with DefaultContent until
// scripted otherwise.
func NewMockProvider(name string, caps providers.Capabilities) *MockProvider {
	return &MockProvider{
		Base:       providers.NewBase(name, caps, 1),
		content:    DefaultContent,
		statusCode: 200,
	}
}

// SetContent scripts the body returned on success.
func (m *MockProvider) SetContent(content string) {
	m.mu.Lock()
	m.content = content
	m.mu.Unlock()
}

// SetStatusCode scripts the status returned on success paths.
func (m *MockProvider) SetStatusCode(code int) {
	m.mu.Lock()
	m.statusCode = code
	m.mu.Unlock()
}

// FailAlways scripts every fetch to fail with message.
func (m *MockProvider) FailAlways(message string) {
	m.mu.Lock()
	m.failAlways = true
	m.failMessage = message
	m.mu.Unlock()
}

// FailFirst scripts the first n fetches to fail, then succeed.
func (m *MockProvider) FailFirst(n int) {
	m.mu.Lock()
	m.failuresAt = n
	m.mu.Unlock()
}

// PanicOnce scripts the next fetch to panic.
func (m *MockProvider) PanicOnce() {
	m.mu.Lock()
	m.panicOnce = true
	m.mu.Unlock()
}

// SetDelay scripts a per-fetch delay, honoring context cancellation.
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// SetProbeError scripts the availability probe outcome.
func (m *MockProvider) SetProbeError(err error) {
	m.mu.Lock()
	m.probeErr = err
	m.mu.Unlock()
}

// FetchCalls returns how many fetch attempts ran.
func (m *MockProvider) FetchCalls() int64 {
	return m.fetchCalls.Load()
}

// ProbeCalls returns how many availability probes ran.
func (m *MockProvider) ProbeCalls() int64 {
	return m.probeCalls.Load()
}

// Closed reports whether Close was called.
func (m *MockProvider) Closed() bool {
	return m.closed.Load()
}

// Fetch implements providers.Provider.
func (m *MockProvider) Fetch(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	call := m.fetchCalls.Add(1)

	return m.Instrument(ctx, req, func() (*providers.Result, error) {
		m.mu.Lock()
		content := m.content
		status := m.statusCode
		failAlways := m.failAlways
		failMessage := m.failMessage
		failuresAt := m.failuresAt
		doPanic := m.panicOnce
		m.panicOnce = false
		delay := m.delay
		m.mu.Unlock()

		if doPanic {
			panic("scripted panic")
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if failAlways {
			return nil, providers.NewFetchError(m.Name(), 0, failMessage, nil)
		}
		if int(call) <= failuresAt {
			return nil, providers.NewFetchError(m.Name(), 0, "scripted transient failure", nil)
		}

		return &providers.Result{Content: content, StatusCode: status}, nil
	})
}

// CheckAvailability implements providers.Provider.
func (m *MockProvider) CheckAvailability(ctx context.Context) error {
	m.probeCalls.Add(1)
	m.mu.Lock()
	err := m.probeErr
	m.mu.Unlock()
	return err
}

// HealthStatus implements providers.Provider.
func (m *MockProvider) HealthStatus(ctx context.Context) providers.HealthStatus {
	return m.ComposeHealth(ctx, m.CheckAvailability)
}

// Close implements providers.Provider.
func (m *MockProvider) Close() error {
	m.closed.Store(true)
	return nil
}
