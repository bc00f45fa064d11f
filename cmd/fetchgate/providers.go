package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"fetchgate/pkg/cli"
	"fetchgate/pkg/providers"
)

var providersFlags struct {
	format string
	url    string
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect the configured provider pool",
	Long: `Inspect the configured provider pool.

Subcommands:
  list  - List providers with capabilities, health, and metrics
  test  - Probe and fetch through one provider directly

Examples:
  # List providers with live health verdicts
  fetchgate providers list

  # Machine-readable listing
  fetchgate providers list --format json

  # Test one provider against a URL, bypassing ranking
  fetchgate providers test relay --url https://example.com`,
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with health and metrics",
	RunE:  listProviders,
}

var providersTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Fetch through one provider directly",
	Long: `Fetch --url through the named provider, bypassing ranking, cost
gating, and health exclusion. Useful for verifying credentials and
connectivity of a single provider.`,
	Args: cobra.ExactArgs(1),
	RunE: testProvider,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd, providersTestCmd)

	providersListCmd.Flags().StringVar(&providersFlags.format, "format", "text", "output format: text, json")
	providersTestCmd.Flags().StringVar(&providersFlags.url, "url", "https://example.com", "URL to fetch")
}

// providerInfo is one row of the list output.
type providerInfo struct {
	Name         string                    `json:"name"`
	Capabilities providers.Capabilities    `json:"capabilities"`
	Health       providers.HealthStatus    `json:"health"`
	Metrics      providers.MetricsSnapshot `json:"metrics"`
}

func listProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	eng, err := buildEngine(cfg, nil, nil)
	if err != nil {
		return cli.NewCommandError("providers", err)
	}
	defer eng.Close()

	ctx := cli.SetupSignalHandler()

	healthByName := eng.ProvidersHealth(ctx)
	metricsByName := eng.MetricsSnapshot()

	infos := make([]providerInfo, 0, len(healthByName))
	for _, p := range eng.Providers() {
		infos = append(infos, providerInfo{
			Name:         p.Name(),
			Capabilities: p.Capabilities(),
			Health:       healthByName[p.Name()],
			Metrics:      metricsByName[p.Name()],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	if providersFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, infos)
	}

	fmt.Printf("Providers: %d\n\n", len(infos))
	for i, info := range infos {
		if i > 0 {
			fmt.Println()
		}
		mark := "✓"
		if !info.Health.Healthy {
			mark = "✗"
		}
		fmt.Printf("%s %s\n", mark, info.Name)
		fmt.Printf("  JavaScript: %t  AntiBot: %t  Commercial: %t\n",
			info.Capabilities.JavaScript, info.Capabilities.AntiBot, info.Capabilities.Commercial)
		if info.Capabilities.CostPerRequest > 0 {
			fmt.Printf("  Cost per request: $%.4f\n", info.Capabilities.CostPerRequest)
		}
		if info.Health.Message != "" {
			fmt.Printf("  Health: %s\n", info.Health.Message)
		}
		fmt.Printf("  Requests: %d (%.0f%% success)\n",
			info.Metrics.RequestCount, info.Metrics.SuccessRate*100)
		if info.Metrics.SuccessCount > 0 {
			fmt.Printf("  Avg response time: %s\n",
				info.Metrics.AvgResponseTime.Round(time.Millisecond))
		}
	}

	return nil
}

func testProvider(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	eng, err := buildEngine(cfg, nil, nil)
	if err != nil {
		return cli.NewCommandError("providers", err)
	}
	defer eng.Close()

	ctx := cli.SetupSignalHandler()

	fmt.Printf("Testing provider %s against %s...\n", name, providersFlags.url)

	start := time.Now()
	result, err := eng.TestProvider(ctx, name, providersFlags.url, nil)
	if err != nil {
		fmt.Printf("✗ Test failed after %s\n", time.Since(start).Round(time.Millisecond))
		return cli.NewCommandError("providers", err)
	}

	fmt.Printf("✓ Test passed in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Status: %d\n", result.StatusCode)
	fmt.Printf("  Size: %d bytes\n", len(result.Content))
	if result.Cost > 0 {
		fmt.Printf("  Cost: $%.4f\n", result.Cost)
	}
	return nil
}
