package export

import (
	"context"
	"encoding/json"
	"io"

	"fetchgate/pkg/journal"
)

// JSONExporter writes journal records as a JSON array.
type JSONExporter struct {
	// Indent enables pretty-printed output.
	Indent bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(indent bool) *JSONExporter {
	return &JSONExporter{Indent: indent}
}

// Export implements journal.Exporter.
func (e *JSONExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return &journal.ExportError{Format: "json", RecordCount: len(records), Cause: err}
	}

	// Export an empty array, not null, when there are no records.
	if records == nil {
		records = []*journal.Record{}
	}

	enc := json.NewEncoder(w)
	if e.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return &journal.ExportError{Format: "json", RecordCount: len(records), Cause: err}
	}
	return nil
}
