package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// and validates the result. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention FETCHGATE_SECTION_FIELD (e.g. FETCHGATE_ENGINE_STRATEGY)
// and always take precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies FETCHGATE_* environment overrides.
func applyEnvOverrides(cfg *Config) {
	// Engine
	if val := os.Getenv("FETCHGATE_ENGINE_STRATEGY"); val != "" {
		cfg.Engine.Strategy = val
	}
	if val := os.Getenv("FETCHGATE_ENGINE_MAX_COST_PER_REQUEST"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Engine.MaxCostPerRequest = f
		}
	}
	if val := os.Getenv("FETCHGATE_ENGINE_ENABLED_PROVIDERS"); val != "" {
		cfg.Engine.EnabledProviders = splitList(val)
	}
	if val := os.Getenv("FETCHGATE_ENGINE_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxRetries = i
		}
	}
	if val := os.Getenv("FETCHGATE_ENGINE_DEFAULT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.DefaultTimeout = d
		}
	}
	if val := os.Getenv("FETCHGATE_ENGINE_USER_AGENT"); val != "" {
		cfg.Engine.UserAgent = val
	}

	// Providers
	if val := os.Getenv("FETCHGATE_RELAY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Providers.Relay.Enabled = boolPtr(b)
		}
	}
	if val := os.Getenv("FETCHGATE_RELAY_PROXY_ADDRS"); val != "" {
		cfg.Providers.Relay.ProxyAddrs = splitList(val)
	}
	if val := os.Getenv("FETCHGATE_RELAY_PROXY_USER"); val != "" {
		cfg.Providers.Relay.ProxyUser = val
	}
	if val := os.Getenv("FETCHGATE_RELAY_PROXY_PASS"); val != "" {
		cfg.Providers.Relay.ProxyPass = val
	}
	if val := os.Getenv("FETCHGATE_BROWSER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Providers.Browser.Enabled = b
		}
	}
	if val := os.Getenv("FETCHGATE_BROWSER_CONTROL_URL"); val != "" {
		cfg.Providers.Browser.ControlURL = val
	}
	if val := os.Getenv("FETCHGATE_SCRAPEAPI_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Providers.ScrapeAPI.Enabled = b
		}
	}
	if val := os.Getenv("FETCHGATE_SCRAPEAPI_BASE_URL"); val != "" {
		cfg.Providers.ScrapeAPI.BaseURL = val
	}
	if val := os.Getenv("FETCHGATE_SCRAPEAPI_API_KEY"); val != "" {
		cfg.Providers.ScrapeAPI.APIKey = val
	}

	// Journal
	if val := os.Getenv("FETCHGATE_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = boolPtr(b)
		}
	}
	if val := os.Getenv("FETCHGATE_JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv("FETCHGATE_JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}

	// Robots
	if val := os.Getenv("FETCHGATE_ROBOTS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Robots.Enabled = b
		}
	}

	// Server
	if val := os.Getenv("FETCHGATE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("FETCHGATE_SERVER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.Enabled = boolPtr(b)
		}
	}

	// Telemetry
	if val := os.Getenv("FETCHGATE_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("FETCHGATE_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
