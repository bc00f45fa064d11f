package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "fetchgate",
	Short: "Fetchgate - provider fallback orchestration engine",
	Long: `Fetchgate is an open-source fallback orchestration engine for fetching
web pages through interchangeable providers.

Each fetch is ranked across the configured provider pool and retried down
the ranking until one provider succeeds, providing:
  - Strategy-based provider ranking (cost, speed, reliability, rendering)
  - Per-provider retries with exponential backoff
  - Availability probes and rolling success metrics
  - Cost budgets that demote expensive providers without excluding them
  - A scrape journal with retention pruning and export`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
