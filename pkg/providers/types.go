package providers

import (
	"time"
)

// Capabilities describes what a provider can do and what it costs.
// It is set once at construction and never mutated; the engine uses it
// only for filtering and ranking.
type Capabilities struct {
	// JavaScript is true when the provider executes page JavaScript
	// before returning content.
	JavaScript bool `json:"javascript"`

	// AntiBot is true when the provider applies anti-bot evasion
	// (fingerprint masking, residential exits, managed challenges).
	AntiBot bool `json:"anti_bot"`

	// Commercial is true for paid third-party backends.
	Commercial bool `json:"commercial"`

	// CostPerRequest is the price of one successful fetch, in the
	// operator's billing unit. Zero for free backends.
	CostPerRequest float64 `json:"cost_per_request"`

	// MaxConcurrency is the number of fetches the provider can run in
	// parallel. Zero means unbounded.
	MaxConcurrency int `json:"max_concurrency"`

	// ResponseTimeHint is the expected response time before any real
	// traffic has been observed. Ranking falls back to it while the
	// provider has no completed requests.
	ResponseTimeHint time.Duration `json:"response_time_hint"`
}

// Requirements is the subset of capability fields a caller can demand.
// A zero value matches every provider.
type Requirements struct {
	// JavaScript requires a provider that renders JavaScript.
	JavaScript bool `json:"javascript,omitempty"`

	// AntiBot requires a provider with anti-bot evasion.
	AntiBot bool `json:"anti_bot,omitempty"`
}

// SatisfiedBy reports whether a provider's capabilities meet the
// requirements.
func (r Requirements) SatisfiedBy(c Capabilities) bool {
	if r.JavaScript && !c.JavaScript {
		return false
	}
	if r.AntiBot && !c.AntiBot {
		return false
	}
	return true
}

// Options carries the per-call knobs for a fetch. All fields are
// optional; unset fields take the engine's configured defaults.
type Options struct {
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRetries is the number of additional attempts per provider
	// after the first (attempts = MaxRetries + 1). Negative means
	// "use the engine default".
	MaxRetries int `json:"max_retries,omitempty"`

	// Strategy overrides the engine's configured ranking strategy for
	// this call only.
	Strategy string `json:"strategy,omitempty"`

	// MaxCostPerRequest overrides the engine's cost budget for this
	// call. Providers above the budget are ranked last, never removed.
	// Zero disables the per-call override.
	MaxCostPerRequest float64 `json:"max_cost_per_request,omitempty"`

	// Require filters out providers that lack the demanded
	// capabilities before ranking.
	Require Requirements `json:"require,omitempty"`

	// Priority is an opaque caller-assigned priority recorded with the
	// request. The engine does not reorder calls by it.
	Priority int `json:"priority,omitempty"`

	// UserAgent overrides the engine's default User-Agent header.
	UserAgent string `json:"user_agent,omitempty"`

	// Headers are additional request headers forwarded to providers
	// that speak HTTP.
	Headers map[string]string `json:"headers,omitempty"`

	// WaitSelector is a CSS selector that must be present in the
	// fetched document. Browser providers additionally wait for it
	// before reading the page.
	WaitSelector string `json:"wait_selector,omitempty"`
}

// Request is one normalized fetch request handed to a provider.
type Request struct {
	// ID correlates the request across attempts, logs, and the
	// journal. Assigned by the engine.
	ID string `json:"id"`

	// URL is the absolute target URL.
	URL string `json:"url"`

	// Options are the normalized per-call options (defaults applied).
	Options Options `json:"options"`
}

// ResultMetadata carries per-fetch diagnostics attached to a Result.
type ResultMetadata struct {
	// RequestID echoes Request.ID.
	RequestID string `json:"request_id"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url"`

	// RedirectCount is the number of redirects followed.
	RedirectCount int `json:"redirect_count"`

	// Extra holds provider-specific key/value diagnostics.
	Extra map[string]string `json:"extra,omitempty"`
}

// Result is a successful fetch. It is only ever constructed on success;
// failures never populate partial results.
type Result struct {
	// Content is the raw fetched document body.
	Content string `json:"content"`

	// StatusCode is the protocol-level status of the final response.
	StatusCode int `json:"status_code"`

	// ResponseTime is the wall-clock duration of the winning attempt.
	ResponseTime time.Duration `json:"response_time"`

	// Provider is the name of the provider that produced the result.
	Provider string `json:"provider"`

	// Cost is the amount billed for this fetch.
	Cost float64 `json:"cost"`

	// Metadata carries request correlation and redirect diagnostics.
	Metadata ResultMetadata `json:"metadata"`
}

// HealthStatus is a point-in-time availability verdict. It is derived
// from a live probe, never persisted, and distinct from the historical
// success rate in Metrics.
type HealthStatus struct {
	// Healthy is true iff the availability probe currently succeeds.
	Healthy bool `json:"healthy"`

	// LastCheck is when the probe ran.
	LastCheck time.Time `json:"last_check"`

	// Message describes the verdict in human-readable form.
	Message string `json:"message"`
}

// MetricsSnapshot is a point-in-time copy of a provider's rolling
// metrics. Snapshots are values; mutating one never affects the
// provider.
type MetricsSnapshot struct {
	// RequestCount is the number of completed fetch attempts.
	RequestCount int64 `json:"request_count"`

	// SuccessCount is the number of successful attempts.
	SuccessCount int64 `json:"success_count"`

	// FailureCount is the number of failed attempts.
	FailureCount int64 `json:"failure_count"`

	// SuccessRate is SuccessCount/RequestCount, or 0 when no requests
	// have completed. Always within [0,1].
	SuccessRate float64 `json:"success_rate"`

	// AvgResponseTime is the rolling average response time over
	// successful attempts only.
	AvgResponseTime time.Duration `json:"avg_response_time"`

	// ResponseTimeJitter is the normalized response-time variance,
	// stddev/(avg+stddev), within [0,1). Zero until two successes.
	ResponseTimeJitter float64 `json:"response_time_jitter"`

	// TotalCost is the sum of CostPerRequest over successful billable
	// attempts.
	TotalCost float64 `json:"total_cost"`
}
