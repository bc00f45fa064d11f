package strategy

import (
	"sort"
	"time"
)

// speedOptimized ranks providers by ascending observed response time,
// falling back to each provider's static hint until it has completed a
// request.
type speedOptimized struct{}

// NewSpeedOptimized creates the speed-optimized strategy.
func NewSpeedOptimized() Strategy {
	return speedOptimized{}
}

// Name returns the strategy name.
func (speedOptimized) Name() string {
	return SpeedOptimized
}

// Rank orders candidates by ascending effective response time; ties keep
// registration order.
func (speedOptimized) Rank(candidates []Candidate) []Candidate {
	out := ranked(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return effectiveResponseTime(out[i]) < effectiveResponseTime(out[j])
	})
	return out
}

// effectiveResponseTime is the observed rolling average when the
// provider has at least one success, otherwise the capability hint. The
// average covers successes only, so a provider with failures but no
// successes still ranks by its hint.
func effectiveResponseTime(c Candidate) time.Duration {
	if c.Metrics.SuccessCount > 0 {
		return c.Metrics.AvgResponseTime
	}
	return c.Capabilities.ResponseTimeHint
}
