package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fetchgate/pkg/cli"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/journal/export"
	"fetchgate/pkg/journal/retention"
)

var journalFlags struct {
	since    string
	until    string
	provider string
	strategy string
	success  string
	minCost  float64
	limit    int
	offset   int
	format   string
	output   string

	maxAgeDays int
	maxRecords int64
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query and maintain the scrape journal",
	Long: `Query, export, and prune the scrape journal.

The journal records one entry per scrape call, success or failure, with
the provider, strategy, fallback depth, cost, and timing.

Subcommands:
  query   - Query records with filters
  export  - Export records to CSV or JSON
  prune   - Enforce the retention policy once

Examples:
  # Last 100 records
  fetchgate journal query

  # Failed calls through the browser provider
  fetchgate journal query --provider browser --success false

  # Export a time range to CSV
  fetchgate journal export --since 2026-08-01T00:00:00Z --format csv -o journal.csv

  # Prune records older than 30 days
  fetchgate journal prune --max-age-days 30`,
}

var journalQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query journal records",
	RunE:  queryJournal,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal records to CSV or JSON",
	RunE:  exportJournal,
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Enforce the retention policy once",
	Long: `Run one retention pass against the journal, deleting records older
than --max-age-days and, when --max-records is set, the oldest records
beyond the cap. Flags default to the configured retention policy.`,
	RunE: pruneJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalQueryCmd, journalExportCmd, journalPruneCmd)

	for _, cmd := range []*cobra.Command{journalQueryCmd, journalExportCmd} {
		cmd.Flags().StringVar(&journalFlags.since, "since", "", "records at or after this time (RFC3339)")
		cmd.Flags().StringVar(&journalFlags.until, "until", "", "records at or before this time (RFC3339)")
		cmd.Flags().StringVar(&journalFlags.provider, "provider", "", "filter by provider")
		cmd.Flags().StringVar(&journalFlags.strategy, "strategy", "", "filter by ranking strategy")
		cmd.Flags().StringVar(&journalFlags.success, "success", "", "filter by outcome (true, false)")
		cmd.Flags().Float64Var(&journalFlags.minCost, "min-cost", 0, "minimum cost threshold")
		cmd.Flags().IntVar(&journalFlags.offset, "offset", 0, "pagination offset")
		cmd.Flags().StringVarP(&journalFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	journalQueryCmd.Flags().IntVar(&journalFlags.limit, "limit", 100, "max results")
	journalQueryCmd.Flags().StringVar(&journalFlags.format, "format", "text", "output format: text, json")
	journalExportCmd.Flags().IntVar(&journalFlags.limit, "limit", 0, "max results (0 = all)")
	journalExportCmd.Flags().StringVar(&journalFlags.format, "format", "csv", "export format: csv, json")

	journalPruneCmd.Flags().IntVar(&journalFlags.maxAgeDays, "max-age-days", 0, "delete records older than this many days")
	journalPruneCmd.Flags().Int64Var(&journalFlags.maxRecords, "max-records", 0, "keep at most this many records")
}

// buildJournalQuery translates the command flags into a storage query.
func buildJournalQuery() (*journal.Query, error) {
	query := &journal.Query{
		Provider: journalFlags.provider,
		Strategy: journalFlags.strategy,
		Limit:    journalFlags.limit,
		Offset:   journalFlags.offset,
	}

	if journalFlags.since != "" {
		since, err := time.Parse(time.RFC3339, journalFlags.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		query.Since = &since
	}
	if journalFlags.until != "" {
		until, err := time.Parse(time.RFC3339, journalFlags.until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		query.Until = &until
	}
	if journalFlags.success != "" {
		success, err := strconv.ParseBool(journalFlags.success)
		if err != nil {
			return nil, fmt.Errorf("invalid --success: %w", err)
		}
		query.Success = &success
	}
	if journalFlags.minCost > 0 {
		query.MinCost = &journalFlags.minCost
	}

	return query, nil
}

func openOutput() (*os.File, error) {
	if journalFlags.output == "" {
		return os.Stdout, nil
	}
	f, err := os.Create(journalFlags.output)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

func queryJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := openJournalStorage(cfg)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	defer store.Close()

	query, err := buildJournalQuery()
	if err != nil {
		return err
	}

	ctx := cli.SetupSignalHandler()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("query failed: %w", err))
	}

	output, err := openOutput()
	if err != nil {
		return err
	}
	if output != os.Stdout {
		defer output.Close()
	}

	if journalFlags.format == "json" {
		return export.NewJSONExporter(true).Export(ctx, records, output)
	}

	fmt.Fprintf(output, "Total records: %d\n", len(records))
	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return nil
	}

	for _, record := range records {
		fmt.Fprintln(output)
		outcome := "✓"
		if !record.Success {
			outcome = "✗"
		}
		fmt.Fprintf(output, "%s %s  %s\n", outcome, record.StartedAt.Format(time.RFC3339), record.URL)
		fmt.Fprintf(output, "  Provider: %s  Strategy: %s\n", record.Provider, record.Strategy)
		fmt.Fprintf(output, "  Attempts: %d  Fallback depth: %d\n", record.Attempts, record.FallbackDepth)
		if record.Success {
			fmt.Fprintf(output, "  Status: %d  Size: %d bytes  Response time: %s\n",
				record.StatusCode, record.ContentLength, record.ResponseTime.Round(time.Millisecond))
		} else if record.Error != "" {
			// Exhaustion errors enumerate every attempt; keep one line
			msg := record.Error
			if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
				msg = msg[:idx] + " ..."
			}
			fmt.Fprintf(output, "  Error: %s\n", msg)
		}
		if record.Cost > 0 {
			over := ""
			if record.OverBudget {
				over = " (over budget)"
			}
			fmt.Fprintf(output, "  Cost: $%.4f%s\n", record.Cost, over)
		}
	}

	return nil
}

func exportJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := openJournalStorage(cfg)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	defer store.Close()

	query, err := buildJournalQuery()
	if err != nil {
		return err
	}

	var exporter journal.Exporter
	switch journalFlags.format {
	case "csv":
		exporter = export.NewCSVExporter()
	case "json":
		exporter = export.NewJSONExporter(true)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: csv, json)", journalFlags.format)
	}

	ctx := cli.SetupSignalHandler()

	total, err := store.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("count failed: %w", err))
	}
	if query.Limit > 0 && int64(query.Limit) < total {
		total = int64(query.Limit)
	}

	// Page through storage so a large journal is never held twice
	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)

	const pageSize = 500
	records := make([]*journal.Record, 0, total)
	page := *query
	for int64(len(records)) < total {
		page.Offset = query.Offset + len(records)
		page.Limit = pageSize
		if remaining := total - int64(len(records)); remaining < pageSize {
			page.Limit = int(remaining)
		}

		batch, err := store.Query(ctx, &page)
		if err != nil {
			progress.Error(err)
			return cli.NewCommandError("journal", fmt.Errorf("query failed: %w", err))
		}
		if len(batch) == 0 {
			break
		}
		records = append(records, batch...)
		progress.Update(int64(len(records)))
	}
	progress.Finish()

	output, err := openOutput()
	if err != nil {
		return err
	}
	if output != os.Stdout {
		defer output.Close()
	}

	if err := exporter.Export(ctx, records, output); err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("export failed: %w", err))
	}

	fmt.Fprintf(os.Stderr, "✓ Exported %d records\n", len(records))
	return nil
}

func pruneJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := openJournalStorage(cfg)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	defer store.Close()

	maxAgeDays := journalFlags.maxAgeDays
	if maxAgeDays == 0 {
		maxAgeDays = cfg.Journal.Retention.MaxAgeDays
	}
	maxRecords := journalFlags.maxRecords
	if maxRecords == 0 {
		maxRecords = cfg.Journal.Retention.MaxRecords
	}

	pruner := retention.NewPruner(store, &retention.Config{
		MaxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		MaxRecords: maxRecords,
	})

	ctx := cli.SetupSignalHandler()
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("prune failed: %w", err))
	}

	fmt.Printf("✓ Deleted %d records\n", deleted)
	return nil
}
