package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"stockdesk/internal/config"
	"stockdesk/internal/files"
	"stockdesk/pkg/contracts/domain"
)

// Output formats
const (
	FormatMarkdown = "md"
	FormatWorkbook = "xlsx"
	FormatCSV      = "csv"
	FormatDocx     = "docx"
)

// ReportWriter renders a report in one format
type ReportWriter interface {
	Format() string
	Extension() string
	Write(w io.Writer, r *domain.AnalysisReport) error
}

// Writers returns the built-in writer for each known format
func Writers() map[string]ReportWriter {
	return map[string]ReportWriter{
		FormatMarkdown: MarkdownWriter{},
		FormatWorkbook: WorkbookWriter{},
		FormatCSV:      RankingCSVWriter{},
		FormatDocx:     DocxWriter{},
	}
}

// ReportExporter writes reports into an output directory
type ReportExporter struct {
	manager *files.Manager
	writers map[string]ReportWriter
	logger  *slog.Logger
}

// NewReportExporter creates an exporter writing into manager's directory
func NewReportExporter(manager *files.Manager, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{manager: manager, writers: Writers(), logger: logger}
}

// OutputDir returns the directory reports are written to
func (e *ReportExporter) OutputDir() string {
	return e.manager.BaseDir()
}

// Export writes r in every requested format. The first format is the main
// document and its path goes to r.FilePath; the others go to r.ExtraFiles.
// Any write failure aborts the export.
func (e *ReportExporter) Export(r *domain.AnalysisReport, formats []string) error {
	if len(formats) == 0 {
		formats = []string{FormatMarkdown}
	}
	if err := e.manager.EnsureDirectory(); err != nil {
		return err
	}

	stamp := r.GeneratedAt.Format(config.ReportTimeLayout)
	for i, format := range formats {
		w, ok := e.writers[strings.ToLower(strings.TrimSpace(format))]
		if !ok {
			return fmt.Errorf("unsupported report format %q", format)
		}

		base := config.ReportBaseName(r.GeneratedAt)
		if w.Format() == FormatCSV {
			base = config.RankingFilePrefix + "_" + stamp
		}
		path := e.manager.UniquePath(base, w.Extension())

		if err := e.manager.WriteAtomic(path, func(out io.Writer) error {
			return w.Write(out, r)
		}); err != nil {
			return fmt.Errorf("failed to write %s report: %w", w.Format(), err)
		}

		if i == 0 {
			r.FilePath = path
		} else {
			r.ExtraFiles = append(r.ExtraFiles, path)
		}
		e.logger.Info("Report written",
			slog.String("format", w.Format()),
			slog.String("path", path),
			slog.Bool("degraded", r.Degraded))
	}
	return nil
}
