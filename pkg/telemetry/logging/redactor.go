package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// redactedValue replaces secret material in log output.
const redactedValue = "[REDACTED]"

// secretKeys are attribute keys whose values are always redacted,
// matched case-insensitively. Commercial providers authenticate with
// API keys that must never reach log storage.
var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"token":         true,
	"secret":        true,
}

// secretPatterns match secret material embedded inside string values,
// e.g. an API key leaked into a URL or error message.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api_?key|token|secret)=([^&\s]+)`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`),
}

// redactHandler scrubs secret attributes and embedded secrets from
// every record before it reaches the output handler.
type redactHandler struct {
	slog.Handler
}

func newRedactHandler(next slog.Handler) slog.Handler {
	return &redactHandler{Handler: next}
}

// Handle implements slog.Handler.
func (h *redactHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.Handler.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = redactAttr(a)
	}
	return &redactHandler{Handler: h.Handler.WithAttrs(cleaned)}
}

// WithGroup implements slog.Handler.
func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{Handler: h.Handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redactedValue)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactString(a.Value.String()))
	}
	return a
}

// RedactString scrubs embedded secret material from s. Exported so
// error messages can be cleaned before they are stored in the journal.
func RedactString(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			if i := strings.IndexAny(match, "= "); i >= 0 {
				return match[:i+1] + redactedValue
			}
			return redactedValue
		})
	}
	return s
}
