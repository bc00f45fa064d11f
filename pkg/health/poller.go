package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fetchgate/pkg/providers"
)

// Poller refreshes every provider's verdict on an interval so the hot
// path always reads a fresh cache. It is optional: without a poller the
// Monitor still works in pure on-demand mode.
type Poller struct {
	monitor  *Monitor
	source   func() []providers.Provider
	interval time.Duration
	logger   *slog.Logger

	// OnVerdict, when set, is invoked with each refreshed verdict.
	// Used to feed gauges without coupling this package to telemetry.
	OnVerdict func(name string, status providers.HealthStatus)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPoller creates a Poller that probes the providers returned by
// source every interval.
func NewPoller(monitor *Monitor, source func() []providers.Provider, interval time.Duration) *Poller {
	return &Poller{
		monitor:  monitor,
		source:   source,
		interval: interval,
		logger:   slog.Default().With("component", "health.poller"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the polling goroutine. The first sweep runs
// immediately; later sweeps follow the interval. Stop or context
// cancellation ends the loop.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop ends the polling loop and waits for the in-flight sweep to
// finish.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	p.logger.Info("health poller started", "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("health poller stopped", "reason", "context cancelled")
			return
		case <-p.stopCh:
			p.logger.Info("health poller stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	list := p.source()
	verdicts := p.monitor.Snapshot(ctx, list)

	unhealthy := 0
	for name, status := range verdicts {
		if !status.Healthy {
			unhealthy++
		}
		if p.OnVerdict != nil {
			p.OnVerdict(name, status)
		}
	}

	p.logger.Debug("health sweep complete",
		"providers", len(list),
		"unhealthy", unhealthy,
	)
}
