package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"fetchgate/pkg/cli"
	"fetchgate/pkg/config"
	"fetchgate/pkg/engine"
	"fetchgate/pkg/health"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/journal/retention"
	"fetchgate/pkg/providers"
	"fetchgate/pkg/server"
	"fetchgate/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Fetchgate ops server",
	Long: `Start the Fetchgate ops server with the specified configuration.

The server exposes the scrape API, provider health and metrics endpoints,
and the journal query endpoint. The engine behind it registers every
enabled provider, probes availability in the background, and reloads the
configuration file on change.

Examples:
  # Start with default config
  fetchgate run

  # Start with custom config
  fetchgate run --config /etc/fetchgate/config.yaml

  # Override listen address
  fetchgate run --listen 0.0.0.0:8080

  # Validate config without starting the server
  fetchgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Fetchgate v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var collector *metrics.Collector
	if boolValue(cfg.Telemetry.Metrics.Enabled, true) {
		collector = metrics.NewCollector()
	}

	// Journal storage, recorder, and retention scheduler
	var (
		store    journal.Storage
		recorder *journal.Recorder
	)
	if boolValue(cfg.Journal.Enabled, true) {
		slog.Info("initializing scrape journal", "backend", cfg.Journal.Backend)

		store, err = openJournalStorage(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()

		recorder = journal.NewRecorder(store, &journal.RecorderConfig{
			Enabled:      true,
			Buffer:       cfg.Journal.Recorder.Buffer,
			WriteTimeout: cfg.Journal.Recorder.WriteTimeout,
		})
		defer recorder.Close()

		if cfg.Journal.Retention.Schedule != "" {
			pruner := retention.NewPruner(store, &retention.Config{
				MaxAge:     time.Duration(cfg.Journal.Retention.MaxAgeDays) * 24 * time.Hour,
				MaxRecords: cfg.Journal.Retention.MaxRecords,
				Schedule:   cfg.Journal.Retention.Schedule,
			})
			scheduler := retention.NewScheduler(pruner)
			if err := scheduler.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer scheduler.Stop()
			}
		}

		fmt.Println("✓ Journal initialized")
	}

	// Engine and provider pool
	eng, err := buildEngine(cfg, collector, recorder)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer eng.Close()

	fmt.Printf("✓ Providers initialized (%d providers)\n", len(eng.Providers()))

	// Background availability polling
	if cfg.Health.PollInterval > 0 {
		poller := health.NewPoller(eng.Monitor(), eng.Providers, cfg.Health.PollInterval)
		if collector != nil {
			poller.OnVerdict = func(name string, status providers.HealthStatus) {
				collector.SetProviderHealthy(name, status.Healthy)
			}
		}
		poller.Start(ctx)
		defer poller.Stop()
	}

	// Hot reload of engine-level settings on config file change
	watcher, err := config.NewWatcher(cfgFile)
	if err != nil {
		slog.Warn("configuration watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				update := engine.RuntimeUpdate{
					Strategy:          &next.Engine.Strategy,
					EnabledProviders:  &next.Engine.EnabledProviders,
					MaxCostPerRequest: &next.Engine.MaxCostPerRequest,
				}
				if err := eng.ApplyRuntime(update); err != nil {
					slog.Error("failed to apply reloaded configuration", "error", err)
				}
			}); err != nil {
				slog.Error("configuration watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	if !boolValue(cfg.Server.Enabled, true) {
		fmt.Println("\nOps server disabled; press Ctrl+C to stop")
		<-cli.SetupSignalHandler().Done()
		return nil
	}

	srv := server.New(&cfg.Server, server.Deps{
		Engine:      eng,
		Journal:     store,
		Metrics:     collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Blocks until signal, context cancellation, or listener failure
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
