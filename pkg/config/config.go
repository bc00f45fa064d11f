package config

import "time"

// Config is the root configuration structure for Fetchgate. It covers
// the orchestration engine, the provider pool, health monitoring, the
// scrape journal, robots handling, the ops HTTP server, and telemetry.
type Config struct {
	// Engine contains orchestration settings: default strategy, retry
	// budget, cost budget, and the provider allow-list.
	Engine EngineConfig `yaml:"engine"`

	// Providers contains per-provider configuration. Disabled
	// providers are not constructed at all.
	Providers ProvidersConfig `yaml:"providers"`

	// Health contains availability-probe settings.
	Health HealthConfig `yaml:"health"`

	// Journal contains scrape-journal storage, recording, and
	// retention settings.
	Journal JournalConfig `yaml:"journal"`

	// Robots contains robots.txt gate settings.
	Robots RobotsConfig `yaml:"robots"`

	// Server contains the ops HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains orchestration engine settings.
type EngineConfig struct {
	// Strategy is the default ranking strategy. One of
	// "cost-optimized", "speed-optimized", "reliability-first",
	// "javascript-first".
	// Default: "cost-optimized"
	Strategy string `yaml:"strategy"`

	// MaxCostPerRequest is the default cost budget in dollars.
	// Providers above it rank last but stay eligible. Zero disables
	// the budget.
	MaxCostPerRequest float64 `yaml:"max_cost_per_request"`

	// EnabledProviders is an allow-list of provider names. Empty means
	// every configured provider is eligible.
	EnabledProviders []string `yaml:"enabled_providers"`

	// MaxRetries is the number of extra attempts per provider after
	// the first. Negative disables retries.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// DefaultTimeout bounds one fetch attempt when the caller sets no
	// timeout.
	// Default: 30s
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// UserAgent is the default User-Agent header.
	// Default: "fetchgate/1.0"
	UserAgent string `yaml:"user_agent"`

	// BackoffBase is the delay after the first failed attempt; it
	// doubles per retry.
	// Default: 500ms
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffMax caps the inter-attempt delay.
	// Default: 10s
	BackoffMax time.Duration `yaml:"backoff_max"`
}

// ProvidersConfig contains configuration for every provider adapter.
type ProvidersConfig struct {
	// Relay is the direct/SOCKS5 HTTP provider.
	Relay RelayConfig `yaml:"relay"`

	// Browser is the headless-Chromium provider.
	Browser BrowserConfig `yaml:"browser"`

	// ScrapeAPI is the commercial scraping-API provider.
	ScrapeAPI ScrapeAPIConfig `yaml:"scrapeapi"`
}

// RelayConfig configures the relay provider.
type RelayConfig struct {
	// Enabled controls whether the provider is constructed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ProxyAddrs lists SOCKS5 proxies (host:port) to rotate through.
	// Empty means direct connections.
	ProxyAddrs []string `yaml:"proxy_addrs"`

	// ProxyUser and ProxyPass authenticate against the proxies.
	ProxyUser string `yaml:"proxy_user"`
	ProxyPass string `yaml:"proxy_pass"`

	// Timeout bounds one whole fetch.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxBodyBytes caps how much of a response body is read.
	// Default: 10485760 (10 MiB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ProbeURL is fetched by availability checks; empty means probes
	// only verify proxy reachability.
	ProbeURL string `yaml:"probe_url"`
}

// BrowserConfig configures the headless-browser provider.
type BrowserConfig struct {
	// Enabled controls whether the provider is constructed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ControlURL is the DevTools endpoint of an already-running
	// browser. Empty means launch a local headless Chromium.
	ControlURL string `yaml:"control_url"`

	// MaxPages caps concurrent page renders.
	// Default: 4
	MaxPages int `yaml:"max_pages"`
}

// ScrapeAPIConfig configures the commercial scraping-API provider.
type ScrapeAPIConfig struct {
	// Enabled controls whether the provider is constructed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// BaseURL is the API endpoint without trailing slash. Required
	// when enabled.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the API. Required when enabled.
	APIKey string `yaml:"api_key"`

	// CostPerRequest is the per-call price charged by the vendor.
	// Default: 0.002
	CostPerRequest float64 `yaml:"cost_per_request"`

	// Country requests a specific exit geography.
	Country string `yaml:"country"`

	// Timeout bounds one whole API call.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains availability-probe settings.
type HealthConfig struct {
	// VerdictTTL is how long a cached health verdict stays fresh.
	// Default: 30s
	VerdictTTL time.Duration `yaml:"verdict_ttl"`

	// ProbeTimeout bounds one availability probe.
	// Default: 10s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// PollInterval is how often the background poller refreshes
	// verdicts. Zero disables background polling; verdicts are then
	// refreshed only by explicit health queries.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// JournalConfig contains scrape-journal settings.
type JournalConfig struct {
	// Enabled controls whether scrapes are journaled at all.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the storage: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder configures the async write path.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite journal backend.
type SQLiteConfig struct {
	// Path is the database file location.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// MaxOpenConns caps open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle pooled connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig configures the async journal recorder.
type RecorderConfig struct {
	// Buffer is the in-memory record queue size. When full, records
	// are dropped rather than blocking scrapes.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig configures scheduled journal pruning.
type RetentionConfig struct {
	// MaxAgeDays removes records older than this many days. Zero
	// disables the age policy.
	// Default: 90
	MaxAgeDays int `yaml:"max_age_days"`

	// MaxRecords caps the journal size by count. Zero disables the
	// count policy.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is the cron expression for the pruning job. Empty
	// disables scheduled pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// RobotsConfig contains robots.txt gate settings.
type RobotsConfig struct {
	// Enabled turns robots.txt enforcement on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// UserAgent is the agent name matched against robots.txt groups.
	// Default: "fetchgate"
	UserAgent string `yaml:"user_agent"`

	// CacheTTL is how long a fetched robots.txt is reused per host.
	// Default: 1h
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// FetchTimeout bounds one robots.txt download.
	// Default: 10s
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ServerConfig contains the ops HTTP server settings.
type ServerConfig struct {
	// Enabled controls whether the ops server starts.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Scrape calls through the API can be slow, so this exceeds the
	// engine's default timeout.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains logging and metrics settings.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus exposition.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source positions in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the exposition endpoint on the ops server.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
