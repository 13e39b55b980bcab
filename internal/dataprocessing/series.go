package dataprocessing

import (
	"log/slog"
	"strings"

	"stockdesk/pkg/contracts/domain"
)

// identifierKeywords mark the entity identifier column
var identifierKeywords = []string{"代码", "code", "symbol"}

// FindIdentifierColumn returns the index of the first column whose lower-cased
// name contains an identifier keyword, or -1.
func FindIdentifierColumn(columns []string) int {
	for i, col := range columns {
		lower := strings.ToLower(col)
		for _, kw := range identifierKeywords {
			if strings.Contains(lower, kw) {
				return i
			}
		}
	}
	return -1
}

// Grouper builds per-entity time series from dated tables
type Grouper struct {
	logger *slog.Logger
}

// NewGrouper creates a Grouper
func NewGrouper(logger *slog.Logger) *Grouper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{logger: logger}
}

// GroupByEntity groups rows by their identifier column and stamps each row
// with its file's date. Tables without an identifier column are skipped and
// their paths returned. Each entity's rows are sorted by date.
func (g *Grouper) GroupByEntity(tables []domain.DatedTable) (domain.EntityTimeSeries, []string) {
	series := make(domain.EntityTimeSeries)
	var skipped []string

	for _, dt := range tables {
		if dt.Table == nil {
			continue
		}
		idCol := FindIdentifierColumn(dt.Table.Columns)
		if idCol < 0 {
			g.logger.Warn("No identifier column found; table skipped",
				slog.String("source", dt.File.Path),
				slog.Any("columns", dt.Table.Columns))
			skipped = append(skipped, dt.File.Path)
			continue
		}

		added := 0
		for r := range dt.Table.Rows {
			id := dt.Table.At(r, idCol)
			if id.Missing || id.Value == "" {
				continue
			}
			values := make(map[string]domain.Cell, len(dt.Table.Columns))
			for c, col := range dt.Table.Columns {
				values[col] = dt.Table.At(r, c)
			}
			series.Add(domain.SeriesRow{
				EntityID: id.Value,
				Date:     dt.File.Date,
				Columns:  dt.Table.Columns,
				Values:   values,
				Source:   dt.File.Path,
			})
			added++
		}

		g.logger.Debug("Grouped table rows",
			slog.String("source", dt.File.Path),
			slog.String("identifier_column", dt.Table.Columns[idCol]),
			slog.Int("rows", added))
	}

	series.SortByDate()
	return series, skipped
}

// GroupByEntity groups with a default Grouper
func GroupByEntity(tables []domain.DatedTable) (domain.EntityTimeSeries, []string) {
	return NewGrouper(nil).GroupByEntity(tables)
}
