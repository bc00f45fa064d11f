// Package providers defines the uniform contract every fetch backend
// implements, along with the shared types flowing through the engine:
// requests, results, capability descriptors, health verdicts, and
// per-provider rolling metrics.
//
// Concrete providers live in subpackages (relay, browser, scrapeapi) and
// differ only in behavior, never in contract. Each provider owns its own
// Metrics and updates them exactly once per fetch attempt; the engine's
// strategy ranking depends on those metrics being fresh for the next call.
//
// New backends are added by satisfying the Provider interface, typically
// by embedding Base, which supplies metrics bookkeeping, response
// validation, panic containment, and health-verdict composition.
package providers
