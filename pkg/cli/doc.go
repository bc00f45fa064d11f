/*
Package cli provides command-line interface utilities for Fetchgate.

The cli package includes output formatters, a progress reporter, and
common CLI helpers used by the fetchgate command.

Output Formatting:

The cli package supports multiple output formats (text, JSON, CSV) for
displaying command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

CSV output requires the data to implement the Tabular interface.

Progress Reporting:

For long-running operations, use the progress reporter:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)
	for _, item := range items {
		// Do work
		progress.Update(processed)
	}
	progress.Finish()

Signal Handling:

For cancelling work on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	result, err := eng.Scrape(ctx, url, nil)
*/
package cli
