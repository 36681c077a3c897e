package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// CSVSink writes one file per pull, named session<id>-stream<id>.csv.
// Columns are the canonical time and value followed by every passthrough
// field, in stable sorted order across the whole record set.
type CSVSink struct {
	dir    string
	logger *slog.Logger
}

// NewCSVSink creates a CSV sink writing into dir, creating it if needed.
func NewCSVSink(dir string, logger *slog.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVSink{dir: dir, logger: logger}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(_ context.Context, out Output) error {
	path := filepath.Join(s.dir, fmt.Sprintf("session%s-stream%d.csv", out.Session.ID, out.Stream.StreamID))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	extras := extraColumns(out)

	header := append([]string{"time", "value"}, extras...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range out.Records {
		row := make([]string, 0, len(header))
		row = append(row, rec.Time.UTC().Format(time.RFC3339), formatValue(rec.Value))
		for _, col := range extras {
			row = append(row, formatField(rec.Fields[col]))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	s.logger.Info("csv written", "path", path, "rows", len(out.Records))
	return nil
}

// extraColumns is the sorted union of passthrough keys across all records,
// minus the two canonical columns.
func extraColumns(out Output) []string {
	seen := map[string]bool{"time": true, "value": true}
	var cols []string
	for _, rec := range out.Records {
		for key := range rec.Fields {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
