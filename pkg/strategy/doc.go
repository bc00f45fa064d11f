// Package strategy implements the named ranking policies that order
// eligible providers for one fetch: cost-optimized, speed-optimized,
// reliability-first, and javascript-first.
//
// A strategy is a total order over the candidate set. Candidates arrive
// in registration order and every policy sorts stably, so ties always
// resolve to the earlier-registered provider and rankings are
// deterministic.
package strategy
