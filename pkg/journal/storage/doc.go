// Package storage provides journal storage backends: an in-memory
// store for tests and development, and a SQLite store for production
// single-instance deployments.
package storage
