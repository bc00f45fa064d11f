package providers

import (
	"context"
)

// Provider is the uniform contract every fetch backend implements.
// The engine treats all providers identically; behavior differences
// (relay chains, headless browsers, commercial APIs) live entirely
// behind this interface.
//
// Implementations must be safe for concurrent use: multiple Fetch calls
// may be in flight at once, and metrics/health reads may interleave with
// them.
type Provider interface {
	// Name returns the provider's unique registry name.
	Name() string

	// Capabilities returns the immutable capability descriptor.
	Capabilities() Capabilities

	// Fetch retrieves the requested document. On completion, success
	// or failure, it updates the provider's own Metrics exactly once
	// per attempt; the engine's ranking depends on that invariant.
	//
	// A non-2xx status, a body below the provider's minimum content
	// length, a missing required selector, and a timeout are all fetch
	// failures. A panic inside the provider is contained here and
	// returned as an error, never propagated.
	Fetch(ctx context.Context, req *Request) (*Result, error)

	// CheckAvailability runs a cheap availability probe, e.g. a fetch
	// of a known-good endpoint. It must not update request Metrics:
	// probes are not requests against the target workload.
	CheckAvailability(ctx context.Context) error

	// HealthStatus composes CheckAvailability into a point-in-time
	// verdict. It fails soft: a probe error or panic yields
	// Healthy=false with a descriptive message, never an error.
	HealthStatus(ctx context.Context) HealthStatus

	// Metrics returns a snapshot of the provider's rolling metrics.
	Metrics() MetricsSnapshot

	// ResetMetrics zeroes the rolling metrics. Operator action only,
	// e.g. a test harness resetting counters between runs.
	ResetMetrics()

	// Close releases provider-held resources (connection pools,
	// browser sessions). The provider must not be used afterwards.
	Close() error
}
