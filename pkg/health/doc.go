// Package health derives point-in-time availability verdicts for
// registered providers.
//
// The Monitor composes each provider's own availability probe into a
// cached verdict: probes are deduplicated so concurrent callers share
// one probe per provider, and verdicts expire after a freshness TTL. A
// stale or missing verdict reads as healthy, so an unhealthy verdict is
// never sticky: a recovering provider is retried as soon as its cached
// verdict ages out or the next probe succeeds.
//
// The optional Poller keeps verdicts fresh in the background; without
// it, verdicts refresh only when something asks.
package health
