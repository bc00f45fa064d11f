package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"

	"fetchgate/pkg/strategy"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	// Field is the dotted path of the offending field.
	Field string

	// Message says what is wrong with it.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found in one pass, so
// operators fix a broken file in one round trip instead of several.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the whole configuration tree and returns every
// problem found. A nil return means the configuration is usable.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Engine
	if _, err := strategy.New(cfg.Engine.Strategy); err != nil {
		add("engine.strategy", "unknown strategy %q (valid: %s)",
			cfg.Engine.Strategy, strings.Join(strategy.Names(), ", "))
	}
	if cfg.Engine.MaxCostPerRequest < 0 {
		add("engine.max_cost_per_request", "must not be negative")
	}
	if cfg.Engine.BackoffMax < cfg.Engine.BackoffBase {
		add("engine.backoff_max", "must be at least backoff_base (%s)", cfg.Engine.BackoffBase)
	}

	// Providers
	known := map[string]bool{"relay": true, "browser": true, "scrapeapi": true}
	for _, name := range cfg.Engine.EnabledProviders {
		if !known[name] {
			add("engine.enabled_providers", "unknown provider %q", name)
		}
	}
	if cfg.Providers.ScrapeAPI.Enabled {
		if cfg.Providers.ScrapeAPI.BaseURL == "" {
			add("providers.scrapeapi.base_url", "required when the provider is enabled")
		}
		if cfg.Providers.ScrapeAPI.APIKey == "" {
			add("providers.scrapeapi.api_key", "required when the provider is enabled")
		}
	}
	if !enabledCount(cfg) {
		add("providers", "at least one provider must be enabled")
	}

	// Journal
	switch cfg.Journal.Backend {
	case "sqlite", "memory":
	default:
		add("journal.backend", "must be %q or %q, got %q", "sqlite", "memory", cfg.Journal.Backend)
	}
	if cfg.Journal.Retention.MaxAgeDays < 0 {
		add("journal.retention.max_age_days", "must not be negative")
	}
	if cfg.Journal.Retention.MaxRecords < 0 {
		add("journal.retention.max_records", "must not be negative")
	}
	if s := cfg.Journal.Retention.Schedule; s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			add("journal.retention.schedule", "invalid cron expression %q: %v", s, err)
		}
	}

	// Server
	if boolVal(cfg.Server.Enabled) {
		if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
			add("server.listen_address", "must be host:port, got %q", cfg.Server.ListenAddress)
		}
	}

	// Telemetry
	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("telemetry.logging.level", "must be one of debug, info, warn, error; got %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		add("telemetry.logging.format", "must be %q or %q, got %q", "json", "text", cfg.Telemetry.Logging.Format)
	}
	if boolVal(cfg.Telemetry.Metrics.Enabled) && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		add("telemetry.metrics.path", "must start with /, got %q", cfg.Telemetry.Metrics.Path)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func enabledCount(cfg *Config) bool {
	return boolVal(cfg.Providers.Relay.Enabled) ||
		cfg.Providers.Browser.Enabled ||
		cfg.Providers.ScrapeAPI.Enabled
}

func boolVal(p *bool) bool {
	return p != nil && *p
}
