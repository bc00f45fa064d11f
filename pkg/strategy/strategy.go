package strategy

import (
	"fmt"
	"strings"

	"fetchgate/pkg/providers"
)

// Strategy names, selectable in configuration and per call.
const (
	CostOptimized    = "cost-optimized"
	SpeedOptimized   = "speed-optimized"
	ReliabilityFirst = "reliability-first"
	JavaScriptFirst  = "javascript-first"
)

// Candidate is one provider as the ranking policies see it: identity,
// immutable capabilities, and a metrics snapshot taken at the start of
// the call.
type Candidate struct {
	// Name is the provider's registry name.
	Name string

	// Capabilities is the provider's immutable descriptor.
	Capabilities providers.Capabilities

	// Metrics is the snapshot driving metric-based ranking.
	Metrics providers.MetricsSnapshot

	// Seq is the provider's registration sequence, used as the
	// deterministic tie-break.
	Seq int
}

// Strategy ranks candidates best-first. Implementations never mutate the
// input slice and never drop candidates; filtering happens before
// ranking.
type Strategy interface {
	// Name returns the strategy's selectable name.
	Name() string

	// Rank returns the candidates ordered best-first.
	Rank(candidates []Candidate) []Candidate
}

// Names returns all selectable strategy names.
func Names() []string {
	return []string{CostOptimized, SpeedOptimized, ReliabilityFirst, JavaScriptFirst}
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch name {
	case CostOptimized:
		return NewCostOptimized(), nil
	case SpeedOptimized:
		return NewSpeedOptimized(), nil
	case ReliabilityFirst:
		return NewReliabilityFirst(), nil
	case JavaScriptFirst:
		return NewJavaScriptFirst(), nil
	default:
		return nil, &InvalidStrategyError{Strategy: name, Available: Names()}
	}
}

// InvalidStrategyError reports an unknown strategy name.
type InvalidStrategyError struct {
	// Strategy is the rejected name.
	Strategy string

	// Available lists the selectable names.
	Available []string
}

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid strategy %q (available: %s)", e.Strategy, strings.Join(e.Available, ", "))
}

// ranked copies candidates so strategies can sort without mutating the
// caller's slice.
func ranked(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	return out
}
