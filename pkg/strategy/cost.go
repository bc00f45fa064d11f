package strategy

import (
	"sort"
)

// costOptimized ranks providers by ascending cost per request, so
// zero-cost backends are always tried before billed ones.
type costOptimized struct{}

// NewCostOptimized creates the cost-optimized strategy.
func NewCostOptimized() Strategy {
	return costOptimized{}
}

// Name returns the strategy name.
func (costOptimized) Name() string {
	return CostOptimized
}

// Rank orders candidates by ascending CostPerRequest; ties keep
// registration order.
func (costOptimized) Rank(candidates []Candidate) []Candidate {
	out := ranked(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Capabilities.CostPerRequest < out[j].Capabilities.CostPerRequest
	})
	return out
}
