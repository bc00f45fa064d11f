package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fetchgate/pkg/providers"
)

const (
	// DefaultVerdictTTL is how long a cached verdict stays fresh.
	DefaultVerdictTTL = 30 * time.Second

	// DefaultProbeTimeout bounds one availability probe.
	DefaultProbeTimeout = 10 * time.Second

	// snapshotConcurrency bounds how many probes a snapshot fans out
	// at once.
	snapshotConcurrency = 8
)

// Monitor caches per-provider health verdicts and deduplicates
// concurrent probes. Safe for concurrent use.
type Monitor struct {
	ttl          time.Duration
	probeTimeout time.Duration

	mu       sync.RWMutex
	verdicts map[string]providers.HealthStatus

	group  singleflight.Group
	logger *slog.Logger
}

// NewMonitor creates a Monitor. Non-positive arguments take the
// defaults.
func NewMonitor(ttl, probeTimeout time.Duration) *Monitor {
	if ttl <= 0 {
		ttl = DefaultVerdictTTL
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Monitor{
		ttl:          ttl,
		probeTimeout: probeTimeout,
		verdicts:     make(map[string]providers.HealthStatus),
		logger:       slog.Default().With("component", "health.monitor"),
	}
}

// Check probes the provider now and caches the verdict. Concurrent
// checks of the same provider share a single probe.
func (m *Monitor) Check(ctx context.Context, p providers.Provider) providers.HealthStatus {
	v, _, _ := m.group.Do(p.Name(), func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()

		status := p.HealthStatus(probeCtx)

		m.mu.Lock()
		m.verdicts[p.Name()] = status
		m.mu.Unlock()

		if !status.Healthy {
			m.logger.DebugContext(ctx, "provider unhealthy",
				"provider", p.Name(),
				"message", status.Message,
			)
		}
		return status, nil
	})
	return v.(providers.HealthStatus)
}

// Verdict returns the cached verdict for name if one exists and is
// still fresh. The second return is false for unknown providers and
// expired verdicts; callers treat that as healthy-unknown so exclusion
// never outlives the TTL.
func (m *Monitor) Verdict(name string) (providers.HealthStatus, bool) {
	m.mu.RLock()
	v, ok := m.verdicts[name]
	m.mu.RUnlock()

	if !ok || time.Since(v.LastCheck) > m.ttl {
		return providers.HealthStatus{}, false
	}
	return v, true
}

// Snapshot probes every provider concurrently and returns the verdicts
// keyed by provider name.
func (m *Monitor) Snapshot(ctx context.Context, list []providers.Provider) map[string]providers.HealthStatus {
	results := make([]providers.HealthStatus, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	for i, p := range list {
		g.Go(func() error {
			results[i] = m.Check(gctx, p)
			return nil
		})
	}
	// Probes never return errors; verdicts carry the failures.
	_ = g.Wait()

	out := make(map[string]providers.HealthStatus, len(list))
	for i, p := range list {
		out[p.Name()] = results[i]
	}
	return out
}

// Forget drops the cached verdict for name. Used when a provider is
// deregistered.
func (m *Monitor) Forget(name string) {
	m.mu.Lock()
	delete(m.verdicts, name)
	m.mu.Unlock()
}
