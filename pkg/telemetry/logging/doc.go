// Package logging configures structured logging for the whole process
// on log/slog: level and format selection, source annotation, secret
// redaction, and context-carried request fields.
package logging
