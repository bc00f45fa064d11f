// Package engine implements the provider fallback orchestrator: it
// owns the provider registry, filters candidates by capability and
// cost, ranks them with a selectable strategy, and walks the ranked
// list with a bounded retry loop until one provider succeeds or all
// are exhausted.
//
// Within one scrape call providers are attempted strictly in ranked
// order; the engine never races two providers for the same request,
// because speculative fetches would double-bill commercial backends.
package engine
