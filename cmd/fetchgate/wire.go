package main

import (
	"fmt"
	"log/slog"

	"fetchgate/pkg/cli"
	"fetchgate/pkg/config"
	"fetchgate/pkg/engine"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/journal/storage"
	"fetchgate/pkg/providers"
	"fetchgate/pkg/providers/browser"
	"fetchgate/pkg/providers/relay"
	"fetchgate/pkg/providers/scrapeapi"
	"fetchgate/pkg/robots"
	"fetchgate/pkg/telemetry/logging"
	"fetchgate/pkg/telemetry/metrics"
)

// loadConfig loads and validates the configuration file with
// FETCHGATE_* environment overrides applied on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	return cfg, nil
}

// setupLogging installs the process logger from config. The --verbose
// flag forces debug level.
func setupLogging(cfg *config.Config) error {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

// openJournalStorage opens the configured journal backend.
func openJournalStorage(cfg *config.Config) (journal.Storage, error) {
	switch cfg.Journal.Backend {
	case "sqlite":
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Journal.SQLite.Path,
			MaxOpenConns: cfg.Journal.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Journal.SQLite.MaxIdleConns,
			WALMode:      boolValue(cfg.Journal.SQLite.WALMode, true),
			BusyTimeout:  cfg.Journal.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported journal backend: %s (supported: sqlite, memory)", cfg.Journal.Backend)
	}
}

// buildProviders constructs every enabled provider adapter.
func buildProviders(cfg *config.Config) ([]providers.Provider, error) {
	var pool []providers.Provider

	if boolValue(cfg.Providers.Relay.Enabled, true) {
		p, err := relay.New(relay.Config{
			ProxyAddrs:   cfg.Providers.Relay.ProxyAddrs,
			ProxyUser:    cfg.Providers.Relay.ProxyUser,
			ProxyPass:    cfg.Providers.Relay.ProxyPass,
			Timeout:      cfg.Providers.Relay.Timeout,
			MaxBodyBytes: cfg.Providers.Relay.MaxBodyBytes,
			ProbeURL:     cfg.Providers.Relay.ProbeURL,
		})
		if err != nil {
			closeProviders(pool)
			return nil, fmt.Errorf("relay provider: %w", err)
		}
		pool = append(pool, p)
	}

	if cfg.Providers.Browser.Enabled {
		pool = append(pool, browser.New(browser.Config{
			ControlURL: cfg.Providers.Browser.ControlURL,
			MaxPages:   cfg.Providers.Browser.MaxPages,
		}))
	}

	if cfg.Providers.ScrapeAPI.Enabled {
		p, err := scrapeapi.New(scrapeapi.Config{
			BaseURL:        cfg.Providers.ScrapeAPI.BaseURL,
			APIKey:         cfg.Providers.ScrapeAPI.APIKey,
			CostPerRequest: cfg.Providers.ScrapeAPI.CostPerRequest,
			Country:        cfg.Providers.ScrapeAPI.Country,
			Timeout:        cfg.Providers.ScrapeAPI.Timeout,
		})
		if err != nil {
			closeProviders(pool)
			return nil, fmt.Errorf("scrapeapi provider: %w", err)
		}
		pool = append(pool, p)
	}

	return pool, nil
}

// buildEngine assembles an engine from config and registers the
// enabled providers. The recorder and collector may be nil.
func buildEngine(cfg *config.Config, collector *metrics.Collector, recorder *journal.Recorder) (*engine.Engine, error) {
	var gate *robots.Gate
	if cfg.Robots.Enabled {
		gate = robots.NewGate(&robots.Config{
			Enabled:      true,
			UserAgent:    cfg.Robots.UserAgent,
			CacheTTL:     cfg.Robots.CacheTTL,
			FetchTimeout: cfg.Robots.FetchTimeout,
		})
	}

	eng, err := engine.New(&engine.Config{
		Strategy:          cfg.Engine.Strategy,
		MaxCostPerRequest: cfg.Engine.MaxCostPerRequest,
		EnabledProviders:  cfg.Engine.EnabledProviders,
		MaxRetries:        cfg.Engine.MaxRetries,
		DefaultTimeout:    cfg.Engine.DefaultTimeout,
		UserAgent:         cfg.Engine.UserAgent,
		Backoff: engine.Backoff{
			Base: cfg.Engine.BackoffBase,
			Max:  cfg.Engine.BackoffMax,
		},
		HealthTTL:    cfg.Health.VerdictTTL,
		ProbeTimeout: cfg.Health.ProbeTimeout,
		Journal:      recorder,
		Metrics:      collector,
		Robots:       gate,
	})
	if err != nil {
		return nil, err
	}

	pool, err := buildProviders(cfg)
	if err != nil {
		eng.Close()
		return nil, err
	}
	for _, p := range pool {
		if err := eng.Register(p); err != nil {
			eng.Close()
			return nil, fmt.Errorf("registering provider %s: %w", p.Name(), err)
		}
	}

	return eng, nil
}

func closeProviders(pool []providers.Provider) {
	for _, p := range pool {
		p.Close()
	}
}

func boolValue(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
