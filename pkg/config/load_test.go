package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetchgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  strategy: speed-optimized
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.Strategy != "speed-optimized" {
		t.Errorf("Strategy = %s, want speed-optimized", cfg.Engine.Strategy)
	}
	if cfg.Engine.MaxRetries != DefaultEngineMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.Engine.MaxRetries, DefaultEngineMaxRetries)
	}
	if cfg.Engine.DefaultTimeout != DefaultEngineTimeout {
		t.Errorf("DefaultTimeout = %v, want %v", cfg.Engine.DefaultTimeout, DefaultEngineTimeout)
	}
	if !boolVal(cfg.Providers.Relay.Enabled) {
		t.Error("relay not enabled by default")
	}
	if cfg.Providers.Browser.Enabled {
		t.Error("browser enabled by default")
	}
	if cfg.Journal.Backend != DefaultJournalBackend {
		t.Errorf("journal backend = %s, want %s", cfg.Journal.Backend, DefaultJournalBackend)
	}
	if cfg.Journal.Retention.Schedule != DefaultJournalRetentionCron {
		t.Errorf("retention schedule = %s", cfg.Journal.Retention.Schedule)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %s, want %s", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfigExplicitFalseSurvivesDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  relay:
    enabled: false
  scrapeapi:
    enabled: true
    base_url: https://api.example.com
    api_key: key
journal:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if boolVal(cfg.Providers.Relay.Enabled) {
		t.Error("relay enabled=false was overwritten by defaults")
	}
	if boolVal(cfg.Journal.Enabled) {
		t.Error("journal enabled=false was overwritten by defaults")
	}
}

func TestLoadConfigFullTree(t *testing.T) {
	path := writeConfig(t, `
engine:
  strategy: reliability-first
  max_cost_per_request: 0.01
  enabled_providers: [relay, scrapeapi]
  max_retries: 1
  default_timeout: 15s
providers:
  relay:
    proxy_addrs: ["127.0.0.1:1080", "127.0.0.1:1081"]
    proxy_user: u
    proxy_pass: p
  scrapeapi:
    enabled: true
    base_url: https://api.example.com
    api_key: secret
    cost_per_request: 0.005
health:
  verdict_ttl: 45s
  probe_timeout: 3s
  poll_interval: 1m
journal:
  backend: memory
  retention:
    max_age_days: 30
    max_records: 100000
robots:
  enabled: true
server:
  listen_address: "0.0.0.0:9090"
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.MaxCostPerRequest != 0.01 {
		t.Errorf("MaxCostPerRequest = %v", cfg.Engine.MaxCostPerRequest)
	}
	if len(cfg.Engine.EnabledProviders) != 2 {
		t.Errorf("EnabledProviders = %v", cfg.Engine.EnabledProviders)
	}
	if cfg.Engine.DefaultTimeout != 15*time.Second {
		t.Errorf("DefaultTimeout = %v", cfg.Engine.DefaultTimeout)
	}
	if len(cfg.Providers.Relay.ProxyAddrs) != 2 {
		t.Errorf("ProxyAddrs = %v", cfg.Providers.Relay.ProxyAddrs)
	}
	if cfg.Providers.ScrapeAPI.CostPerRequest != 0.005 {
		t.Errorf("CostPerRequest = %v", cfg.Providers.ScrapeAPI.CostPerRequest)
	}
	if cfg.Health.PollInterval != time.Minute {
		t.Errorf("PollInterval = %v", cfg.Health.PollInterval)
	}
	if cfg.Journal.Backend != "memory" {
		t.Errorf("Backend = %s", cfg.Journal.Backend)
	}
	if cfg.Journal.Retention.MaxAgeDays != 30 || cfg.Journal.Retention.MaxRecords != 100000 {
		t.Errorf("Retention = %+v", cfg.Journal.Retention)
	}
	if !cfg.Robots.Enabled {
		t.Error("robots not enabled")
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() = nil for missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not a map")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() = nil for malformed YAML")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  strategy: cost-optimized
`)

	t.Setenv("FETCHGATE_ENGINE_STRATEGY", "javascript-first")
	t.Setenv("FETCHGATE_ENGINE_MAX_COST_PER_REQUEST", "0.02")
	t.Setenv("FETCHGATE_ENGINE_ENABLED_PROVIDERS", "relay, browser")
	t.Setenv("FETCHGATE_SERVER_LISTEN_ADDRESS", "127.0.0.1:7070")
	t.Setenv("FETCHGATE_LOG_LEVEL", "warn")
	t.Setenv("FETCHGATE_SCRAPEAPI_API_KEY", "from-env")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Engine.Strategy != "javascript-first" {
		t.Errorf("Strategy = %s", cfg.Engine.Strategy)
	}
	if cfg.Engine.MaxCostPerRequest != 0.02 {
		t.Errorf("MaxCostPerRequest = %v", cfg.Engine.MaxCostPerRequest)
	}
	want := []string{"relay", "browser"}
	if len(cfg.Engine.EnabledProviders) != 2 || cfg.Engine.EnabledProviders[0] != want[0] || cfg.Engine.EnabledProviders[1] != want[1] {
		t.Errorf("EnabledProviders = %v, want %v", cfg.Engine.EnabledProviders, want)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7070" {
		t.Errorf("ListenAddress = %s", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Level = %s", cfg.Telemetry.Logging.Level)
	}
	if cfg.Providers.ScrapeAPI.APIKey != "from-env" {
		t.Errorf("APIKey = %s", cfg.Providers.ScrapeAPI.APIKey)
	}
}

func TestEnvOverrideFailsValidation(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("FETCHGATE_ENGINE_STRATEGY", "no-such-strategy")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("invalid env override passed validation")
	}
}
