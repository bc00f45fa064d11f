package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineStrategy    = "cost-optimized"
	DefaultEngineMaxRetries  = 2
	DefaultEngineTimeout     = 30 * time.Second
	DefaultEngineUserAgent   = "fetchgate/1.0"
	DefaultEngineBackoffBase = 500 * time.Millisecond
	DefaultEngineBackoffMax  = 10 * time.Second

	// Provider defaults
	DefaultRelayTimeout      = 30 * time.Second
	DefaultRelayMaxBodyBytes = int64(10 << 20)
	DefaultBrowserMaxPages   = 4
	DefaultScrapeAPICost     = 0.002
	DefaultScrapeAPITimeout  = 60 * time.Second

	// Health defaults
	DefaultHealthVerdictTTL   = 30 * time.Second
	DefaultHealthProbeTimeout = 10 * time.Second

	// Journal defaults
	DefaultJournalBackend        = "sqlite"
	DefaultJournalSQLitePath     = "data/journal.db"
	DefaultJournalMaxOpenConns   = 10
	DefaultJournalMaxIdleConns   = 5
	DefaultJournalBusyTimeout    = 5 * time.Second
	DefaultJournalRecorderBuffer = 1000
	DefaultJournalWriteTimeout   = 5 * time.Second
	DefaultJournalRetentionDays  = 90
	DefaultJournalRetentionCron  = "0 3 * * *"

	// Robots defaults
	DefaultRobotsUserAgent    = "fetchgate"
	DefaultRobotsCacheTTL     = time.Hour
	DefaultRobotsFetchTimeout = 10 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultMetricsPath   = "/metrics"
)

// ApplyDefaults fills unset fields with their defaults. Explicit zero
// values for tri-state booleans use pointers so "false" survives.
func ApplyDefaults(cfg *Config) {
	// Engine
	if cfg.Engine.Strategy == "" {
		cfg.Engine.Strategy = DefaultEngineStrategy
	}
	if cfg.Engine.MaxRetries == 0 {
		cfg.Engine.MaxRetries = DefaultEngineMaxRetries
	}
	if cfg.Engine.DefaultTimeout <= 0 {
		cfg.Engine.DefaultTimeout = DefaultEngineTimeout
	}
	if cfg.Engine.UserAgent == "" {
		cfg.Engine.UserAgent = DefaultEngineUserAgent
	}
	if cfg.Engine.BackoffBase <= 0 {
		cfg.Engine.BackoffBase = DefaultEngineBackoffBase
	}
	if cfg.Engine.BackoffMax <= 0 {
		cfg.Engine.BackoffMax = DefaultEngineBackoffMax
	}

	// Providers
	if cfg.Providers.Relay.Enabled == nil {
		cfg.Providers.Relay.Enabled = boolPtr(true)
	}
	if cfg.Providers.Relay.Timeout <= 0 {
		cfg.Providers.Relay.Timeout = DefaultRelayTimeout
	}
	if cfg.Providers.Relay.MaxBodyBytes <= 0 {
		cfg.Providers.Relay.MaxBodyBytes = DefaultRelayMaxBodyBytes
	}
	if cfg.Providers.Browser.MaxPages <= 0 {
		cfg.Providers.Browser.MaxPages = DefaultBrowserMaxPages
	}
	if cfg.Providers.ScrapeAPI.CostPerRequest <= 0 {
		cfg.Providers.ScrapeAPI.CostPerRequest = DefaultScrapeAPICost
	}
	if cfg.Providers.ScrapeAPI.Timeout <= 0 {
		cfg.Providers.ScrapeAPI.Timeout = DefaultScrapeAPITimeout
	}

	// Health
	if cfg.Health.VerdictTTL <= 0 {
		cfg.Health.VerdictTTL = DefaultHealthVerdictTTL
	}
	if cfg.Health.ProbeTimeout <= 0 {
		cfg.Health.ProbeTimeout = DefaultHealthProbeTimeout
	}

	// Journal
	if cfg.Journal.Enabled == nil {
		cfg.Journal.Enabled = boolPtr(true)
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.SQLite.Path == "" {
		cfg.Journal.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.Journal.SQLite.MaxOpenConns <= 0 {
		cfg.Journal.SQLite.MaxOpenConns = DefaultJournalMaxOpenConns
	}
	if cfg.Journal.SQLite.MaxIdleConns <= 0 {
		cfg.Journal.SQLite.MaxIdleConns = DefaultJournalMaxIdleConns
	}
	if cfg.Journal.SQLite.WALMode == nil {
		cfg.Journal.SQLite.WALMode = boolPtr(true)
	}
	if cfg.Journal.SQLite.BusyTimeout <= 0 {
		cfg.Journal.SQLite.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.Recorder.Buffer <= 0 {
		cfg.Journal.Recorder.Buffer = DefaultJournalRecorderBuffer
	}
	if cfg.Journal.Recorder.WriteTimeout <= 0 {
		cfg.Journal.Recorder.WriteTimeout = DefaultJournalWriteTimeout
	}
	if cfg.Journal.Retention.MaxAgeDays == 0 {
		cfg.Journal.Retention.MaxAgeDays = DefaultJournalRetentionDays
	}
	if cfg.Journal.Retention.Schedule == "" {
		cfg.Journal.Retention.Schedule = DefaultJournalRetentionCron
	}

	// Robots
	if cfg.Robots.UserAgent == "" {
		cfg.Robots.UserAgent = DefaultRobotsUserAgent
	}
	if cfg.Robots.CacheTTL <= 0 {
		cfg.Robots.CacheTTL = DefaultRobotsCacheTTL
	}
	if cfg.Robots.FetchTimeout <= 0 {
		cfg.Robots.FetchTimeout = DefaultRobotsFetchTimeout
	}

	// Server
	if cfg.Server.Enabled == nil {
		cfg.Server.Enabled = boolPtr(true)
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func boolPtr(b bool) *bool {
	return &b
}
