package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fetchgate/pkg/cli"
	"fetchgate/pkg/providers"
)

var fetchFlags struct {
	provider       string
	strategy       string
	timeout        time.Duration
	maxRetries     int
	maxCost        float64
	requireJS      bool
	requireAntiBot bool
	userAgent      string
	waitSelector   string
	format         string
	output         string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch one page through the provider pool",
	Long: `Fetch a single page through the configured provider pool.

The page content is written to stdout (or --output); the fetch summary
goes to stderr so the content stays pipeable.

Examples:
  # Fetch with the configured default strategy
  fetchgate fetch https://example.com/page

  # Prefer the fastest provider and allow one retry per provider
  fetchgate fetch https://example.com/page --strategy speed-optimized --max-retries 1

  # Force a JavaScript-capable provider and wait for an element
  fetchgate fetch https://example.com/app --require-javascript --wait-selector "#content"

  # Bypass ranking and test one provider directly
  fetchgate fetch https://example.com/page --provider relay

  # Full result as JSON
  fetchgate fetch https://example.com/page --format json --output result.json`,
	Args: cobra.ExactArgs(1),
	RunE: fetchPage,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFlags.provider, "provider", "", "bypass ranking and use this provider")
	fetchCmd.Flags().StringVar(&fetchFlags.strategy, "strategy", "", "ranking strategy: cost-optimized, speed-optimized, reliability-first, javascript-first")
	fetchCmd.Flags().DurationVar(&fetchFlags.timeout, "timeout", 0, "per-attempt timeout (default: engine config)")
	fetchCmd.Flags().IntVar(&fetchFlags.maxRetries, "max-retries", -1, "extra attempts per provider (default: engine config)")
	fetchCmd.Flags().Float64Var(&fetchFlags.maxCost, "max-cost", 0, "cost budget; providers above it rank last")
	fetchCmd.Flags().BoolVar(&fetchFlags.requireJS, "require-javascript", false, "require a JavaScript-rendering provider")
	fetchCmd.Flags().BoolVar(&fetchFlags.requireAntiBot, "require-antibot", false, "require a provider with anti-bot evasion")
	fetchCmd.Flags().StringVar(&fetchFlags.userAgent, "user-agent", "", "override the User-Agent header")
	fetchCmd.Flags().StringVar(&fetchFlags.waitSelector, "wait-selector", "", "CSS selector that must be present in the document")
	fetchCmd.Flags().StringVar(&fetchFlags.format, "format", "text", "output format: text, json")
	fetchCmd.Flags().StringVarP(&fetchFlags.output, "output", "o", "", "output file (default: stdout)")
}

func fetchPage(cmd *cobra.Command, args []string) error {
	targetURL := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	eng, err := buildEngine(cfg, nil, nil)
	if err != nil {
		return cli.NewCommandError("fetch", err)
	}
	defer eng.Close()

	opts := &providers.Options{
		Timeout:           fetchFlags.timeout,
		MaxRetries:        fetchFlags.maxRetries,
		Strategy:          fetchFlags.strategy,
		MaxCostPerRequest: fetchFlags.maxCost,
		Require: providers.Requirements{
			JavaScript: fetchFlags.requireJS,
			AntiBot:    fetchFlags.requireAntiBot,
		},
		UserAgent:    fetchFlags.userAgent,
		WaitSelector: fetchFlags.waitSelector,
	}

	// Ctrl+C aborts the whole fallback chain
	ctx := cli.SetupSignalHandler()

	start := time.Now()
	var result *providers.Result
	if fetchFlags.provider != "" {
		result, err = eng.TestProvider(ctx, fetchFlags.provider, targetURL, opts)
	} else {
		result, err = eng.Scrape(ctx, targetURL, opts)
	}
	if err != nil {
		return cli.NewCommandError("fetch", err)
	}

	output := os.Stdout
	if fetchFlags.output != "" {
		output, err = os.Create(fetchFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	switch fetchFlags.format {
	case "json":
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(output, result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "✓ Fetched %s\n", targetURL)
		fmt.Fprintf(os.Stderr, "  Provider: %s\n", result.Provider)
		fmt.Fprintf(os.Stderr, "  Status: %d\n", result.StatusCode)
		fmt.Fprintf(os.Stderr, "  Size: %d bytes\n", len(result.Content))
		fmt.Fprintf(os.Stderr, "  Response time: %s (total %s)\n",
			result.ResponseTime.Round(time.Millisecond),
			time.Since(start).Round(time.Millisecond))
		if result.Cost > 0 {
			fmt.Fprintf(os.Stderr, "  Cost: $%.4f\n", result.Cost)
		}
		if result.Metadata.FinalURL != "" && result.Metadata.FinalURL != targetURL {
			fmt.Fprintf(os.Stderr, "  Final URL: %s (%d redirects)\n",
				result.Metadata.FinalURL, result.Metadata.RedirectCount)
		}
		if _, err := fmt.Fprint(output, result.Content); err != nil {
			return fmt.Errorf("failed to write content: %w", err)
		}
	}

	return nil
}
