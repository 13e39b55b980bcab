package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"stockdesk/internal/files"
	"stockdesk/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	manager *files.Manager
	logger  *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(manager *files.Manager, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{manager: manager, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options. Relative paths
// are resolved against the manager's base directory.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	return w.manager.WriteAtomic(fullPath, func(out io.Writer) error {
		return encodeCSV(out, options)
	})
}

// WriteSimpleCSV writes a simple CSV file with headers, records and a BOM
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteTable exports an ingested table with its repaired column names
func (w *CSVWriter) WriteTable(filePath string, t *domain.RawTable) error {
	if t == nil {
		return fmt.Errorf("no table to write")
	}
	return w.WriteSimpleCSV(filePath, t.Columns, t.StringRows())
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.manager == nil {
		return filePath
	}
	return filepath.Join(w.manager.BaseDir(), filePath)
}

func encodeCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// RankingRecords renders ranked returns as CSV rows matching RankingHeaders
func RankingRecords(top []domain.ReturnRecord) [][]string {
	records := make([][]string, 0, len(top))
	for i, rec := range top {
		records = append(records, []string{
			formatInt(i + 1),
			rec.EntityID,
			formatFloat(rec.PctChange),
			formatFloat(rec.StartValue),
			formatFloat(rec.EndValue),
			formatInt(rec.ObservationCount),
			rec.ValueColumn,
		})
	}
	return records
}

// RankingCSVWriter renders the ranking table of a report as a CSV sidecar
type RankingCSVWriter struct{}

// Format implements ReportWriter
func (RankingCSVWriter) Format() string { return FormatCSV }

// Extension implements ReportWriter
func (RankingCSVWriter) Extension() string { return ".csv" }

// Write implements ReportWriter
func (RankingCSVWriter) Write(w io.Writer, r *domain.AnalysisReport) error {
	return encodeCSV(w, WriteOptions{
		Headers:   RankingHeaders,
		Records:   RankingRecords(r.TopEntities),
		BOMPrefix: true,
	})
}
