// Package metrics exposes the engine's Prometheus instrumentation:
// scrape outcomes, per-provider attempts, fallback depth, latency
// histograms, accumulated cost, and provider health gauges.
//
// A nil *Collector is a valid no-op, so callers never guard metric
// calls behind an enabled check.
package metrics
