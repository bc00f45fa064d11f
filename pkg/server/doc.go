// Package server provides the Fetchgate HTTP API: scrape submission,
// provider health and diagnostics, engine statistics, journal queries,
// and Prometheus exposition, behind a recovery/request-id/logging
// middleware chain with graceful shutdown.
package server
