package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"fetchgate/pkg/journal"
)

// csvHeader is the column order of the CSV export.
var csvHeader = []string{
	"id",
	"request_id",
	"url",
	"provider",
	"strategy",
	"status_code",
	"success",
	"error",
	"attempts",
	"fallback_depth",
	"response_time_ms",
	"cost",
	"content_length",
	"over_budget",
	"started_at",
	"recorded_at",
}

// CSVExporter writes journal records as CSV with a header row.
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export implements journal.Exporter.
func (e *CSVExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return &journal.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return &journal.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
		if err := cw.Write(csvRow(r)); err != nil {
			return &journal.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &journal.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
	}
	return nil
}

func csvRow(r *journal.Record) []string {
	return []string{
		r.ID,
		r.RequestID,
		r.URL,
		r.Provider,
		r.Strategy,
		strconv.Itoa(r.StatusCode),
		strconv.FormatBool(r.Success),
		r.Error,
		strconv.Itoa(r.Attempts),
		strconv.Itoa(r.FallbackDepth),
		strconv.FormatInt(r.ResponseTime.Milliseconds(), 10),
		strconv.FormatFloat(r.Cost, 'f', -1, 64),
		strconv.Itoa(r.ContentLength),
		strconv.FormatBool(r.OverBudget),
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
}
