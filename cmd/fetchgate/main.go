// Fetchgate is a provider fallback orchestration engine for fetching
// web pages.
//
// It routes each fetch through a pool of interchangeable providers
// (plain HTTP relays, headless browsers, commercial scraping APIs),
// ranks them per request, and falls down the ranking until one
// succeeds, providing:
//   - Strategy-based provider ranking (cost, speed, reliability, rendering)
//   - Per-provider retries with exponential backoff
//   - Availability probes and rolling success metrics
//   - Cost budgets that demote expensive providers without excluding them
//   - A scrape journal with retention pruning and export
//
// Usage:
//
//	# Start the ops server with default configuration
//	fetchgate run
//
//	# Start with custom configuration file
//	fetchgate run --config /path/to/config.yaml
//
//	# Fetch one page from the command line
//	fetchgate fetch https://example.com/page
//
//	# List providers with health and metrics
//	fetchgate providers list
//
//	# Query the scrape journal
//	fetchgate journal query --since 2026-08-01T00:00:00Z
//
//	# Show version information
//	fetchgate version
package main

func main() {
	Execute()
}
