package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric name.
const namespace = "fetchgate"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds the engine's Prometheus collectors. All methods are
// safe on a nil receiver, which is how telemetry is disabled.
type Collector struct {
	registry *prometheus.Registry

	scrapes        *prometheus.CounterVec
	attempts       *prometheus.CounterVec
	fallbacks      prometheus.Counter
	scrapeDuration *prometheus.HistogramVec
	requestCost    *prometheus.CounterVec
	providerHealth *prometheus.GaugeVec
	registered     prometheus.Gauge
}

// NewCollector creates a Collector backed by its own registry, so
// tests and multiple engines never collide on metric registration.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		scrapes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrapes_total",
				Help:      "Total scrape calls by winning provider, strategy, and outcome.",
			},
			[]string{"provider", "strategy", "outcome"},
		),

		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total fetch attempts by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),

		fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total scrape calls that advanced past the first-ranked provider.",
			},
		),

		scrapeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scrape_duration_seconds",
				Help:      "Wall-clock duration of the winning attempt by provider.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		requestCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_cost_total",
				Help:      "Accumulated billed cost by provider.",
			},
			[]string{"provider"},
		),

		providerHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_healthy",
				Help:      "Latest health verdict per provider (1 healthy, 0 unhealthy).",
			},
			[]string{"provider"},
		),

		registered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "providers_registered",
				Help:      "Number of providers in the engine registry.",
			},
		),
	}
}

// Registry returns the collector's registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordScrape records one finished scrape call.
func (c *Collector) RecordScrape(provider, strategy, outcome string, duration time.Duration, cost float64) {
	if c == nil {
		return
	}
	c.scrapes.WithLabelValues(provider, strategy, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.scrapeDuration.WithLabelValues(provider).Observe(duration.Seconds())
		if cost > 0 {
			c.requestCost.WithLabelValues(provider).Add(cost)
		}
	}
}

// RecordAttempt records one fetch attempt against one provider.
func (c *Collector) RecordAttempt(provider, outcome string) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback records a scrape call that advanced past its
// first-ranked provider.
func (c *Collector) RecordFallback() {
	if c == nil {
		return
	}
	c.fallbacks.Inc()
}

// SetProviderHealthy records the latest health verdict for provider.
func (c *Collector) SetProviderHealthy(provider string, healthy bool) {
	if c == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	c.providerHealth.WithLabelValues(provider).Set(v)
}

// SetProvidersRegistered records the registry size.
func (c *Collector) SetProvidersRegistered(n int) {
	if c == nil {
		return
	}
	c.registered.Set(float64(n))
}

// ForgetProvider drops per-provider series when a provider is
// deregistered, so stale labels stop being exported.
func (c *Collector) ForgetProvider(provider string) {
	if c == nil {
		return
	}
	c.scrapes.DeletePartialMatch(prometheus.Labels{"provider": provider})
	c.attempts.DeletePartialMatch(prometheus.Labels{"provider": provider})
	c.scrapeDuration.DeletePartialMatch(prometheus.Labels{"provider": provider})
	c.requestCost.DeletePartialMatch(prometheus.Labels{"provider": provider})
	c.providerHealth.DeletePartialMatch(prometheus.Labels{"provider": provider})
}
