package strategy

import (
	"sort"
	"time"
)

// latencyHorizon is the response time at which the latency term of the
// reliability score bottoms out. Anything slower contributes zero.
const latencyHorizon = 30 * time.Second

// neutralScore is the reliability assigned to a provider with no track
// record, so new providers are neither favored nor excluded before they
// have served traffic.
const neutralScore = 0.5

// reliabilityFirst ranks providers by a composite score of historical
// success rate, average latency, and latency stability.
type reliabilityFirst struct{}

// NewReliabilityFirst creates the reliability-first strategy.
func NewReliabilityFirst() Strategy {
	return reliabilityFirst{}
}

// Name returns the strategy name.
func (reliabilityFirst) Name() string {
	return ReliabilityFirst
}

// Rank orders candidates by descending reliability score; ties keep
// registration order.
func (reliabilityFirst) Rank(candidates []Candidate) []Candidate {
	out := ranked(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i]) > Score(out[j])
	})
	return out
}

// Score is the composite reliability score:
//
//	0.6·successRate + 0.2·max(0, 1 − avgResponseTime/30s) + 0.2·(1 − jitter)
//
// A candidate with zero completed requests scores the neutral prior.
func Score(c Candidate) float64 {
	m := c.Metrics
	if m.RequestCount == 0 {
		return neutralScore
	}

	latency := 1 - m.AvgResponseTime.Seconds()/latencyHorizon.Seconds()
	if latency < 0 {
		latency = 0
	}

	return 0.6*m.SuccessRate + 0.2*latency + 0.2*(1-m.ResponseTimeJitter)
}
