package operations

import (
	"context"

	"stockdesk/pkg/contracts/domain"
)

// FileIngestor reads one spreadsheet. It reports failure through the result.
type FileIngestor interface {
	Ingest(ctx context.Context, path string) domain.IngestResult
}

// FileClassifier assigns a category and date to an input file
type FileClassifier interface {
	Classify(path string) domain.ClassifiedFile
}

// ReportWriter persists a composed report in the requested formats
type ReportWriter interface {
	Export(r *domain.AnalysisReport, formats []string) error
}
