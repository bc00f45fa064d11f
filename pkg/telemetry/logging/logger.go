package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats.
const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON = "json"
	// FormatText outputs logfmt-style text.
	FormatText = "text"
)

// Config contains configuration for the process logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn",
	// "error").
	// Default: "info"
	Level string

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string

	// AddSource includes file:line in every record.
	// Default: false
	AddSource bool

	// Writer is the output destination.
	// Default: os.Stdout
	Writer io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: FormatJSON,
	}
}

// New builds a logger from config. The handler chain is
// format handler → redaction → context field injection.
func New(config *Config) (*slog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (available: json, text)", config.Format)
	}

	handler = newRedactHandler(handler)
	handler = newContextHandler(handler)
	return slog.New(handler), nil
}

// Setup builds a logger from config and installs it as the slog
// default, so component loggers created with slog.Default() inherit it.
func Setup(config *Config) (*slog.Logger, error) {
	logger, err := New(config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (available: debug, info, warn, error)", s)
	}
}
