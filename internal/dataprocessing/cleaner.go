package dataprocessing

import (
	"log/slog"

	"stockdesk/pkg/contracts/domain"
)

// DefaultCleanThreshold drops rows that are at least half empty
const DefaultCleanThreshold = 0.5

// SparseWarningFraction is the overall missing share above which a cleaned
// table is reported as sparse.
const SparseWarningFraction = 0.5

// Clean returns a copy of table without rows whose missing/columns fraction
// is >= threshold, and the number of rows removed. Cells beyond the end of a
// short row count as missing. A table without columns is returned unchanged.
func Clean(table *domain.RawTable, threshold float64) (*domain.RawTable, int) {
	if table == nil || len(table.Columns) == 0 {
		return table, 0
	}
	if threshold <= 0 {
		threshold = DefaultCleanThreshold
	}

	cols := len(table.Columns)
	out := &domain.RawTable{
		Columns: append([]string(nil), table.Columns...),
		Rows:    make([][]domain.Cell, 0, len(table.Rows)),
	}

	removed := 0
	for r := range table.Rows {
		missing := 0
		for c := 0; c < cols; c++ {
			if table.At(r, c).Missing {
				missing++
			}
		}
		if float64(missing)/float64(cols) >= threshold {
			removed++
			continue
		}
		out.Rows = append(out.Rows, table.Rows[r])
	}

	return out, removed
}

// Cleaner applies Clean with a fixed threshold and logs what it removed
type Cleaner struct {
	threshold float64
	logger    *slog.Logger
}

// NewCleaner creates a Cleaner
func NewCleaner(threshold float64, logger *slog.Logger) *Cleaner {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCleanThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{threshold: threshold, logger: logger}
}

// Clean cleans one table. source is used only for logging.
func (c *Cleaner) Clean(source string, table *domain.RawTable) (*domain.RawTable, int) {
	cleaned, removed := Clean(table, c.threshold)
	if removed > 0 {
		c.logger.Info("Dropped sparse rows",
			slog.String("source", source),
			slog.Int("removed", removed),
			slog.Float64("threshold", c.threshold))
	}
	if frac := cleaned.MissingFraction(); frac > SparseWarningFraction {
		c.logger.Warn("Table is mostly empty after cleaning",
			slog.String("source", source),
			slog.Float64("missing_fraction", frac))
	}
	return cleaned, removed
}
