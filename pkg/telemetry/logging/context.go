package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// requestIDKey carries the scrape request ID.
	requestIDKey contextKey = "request_id"

	// providerKey carries the provider name currently being attempted.
	providerKey contextKey = "provider"
)

// WithRequestID returns a context carrying requestID for log records.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from ctx, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithProvider returns a context carrying the provider name for log
// records.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// ProviderName retrieves the provider name from ctx, or "".
func ProviderName(ctx context.Context) string {
	if p, ok := ctx.Value(providerKey).(string); ok {
		return p
	}
	return ""
}

// contextHandler lifts known context values into log record attributes,
// so call sites using the *Context slog methods get request correlation
// for free.
type contextHandler struct {
	slog.Handler
}

func newContextHandler(next slog.Handler) slog.Handler {
	return &contextHandler{Handler: next}
}

// Handle implements slog.Handler.
func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestID(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	if p := ProviderName(ctx); p != "" {
		record.AddAttrs(slog.String("provider", p))
	}
	return h.Handler.Handle(ctx, record)
}

// WithAttrs implements slog.Handler.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
