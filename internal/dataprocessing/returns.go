package dataprocessing

import (
	"log/slog"
	"sort"
	"strings"

	"stockdesk/pkg/contracts/domain"
)

// PriceKeywords are closing-price synonyms, checked per column in this order
var PriceKeywords = []string{"收盘", "close", "价格", "价", "last"}

// FallbackSuffix marks a value column chosen by the first-numeric fallback
const FallbackSuffix = "(fallback)"

// DefaultTopN is the ranking size when none is given
const DefaultTopN = 10

// minObservations is the number of valid values a return needs
const minObservations = 2

// FindPriceColumn returns the first column, in column order, whose lower-cased
// name contains a price keyword. Returns "" when none matches.
func FindPriceColumn(columns []string) string {
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, kw := range PriceKeywords {
			if strings.Contains(lower, kw) {
				return col
			}
		}
	}
	return ""
}

// ReturnCalculator computes first-to-last percentage changes per entity
type ReturnCalculator struct {
	logger *slog.Logger
}

// NewReturnCalculator creates a ReturnCalculator
func NewReturnCalculator(logger *slog.Logger) *ReturnCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReturnCalculator{logger: logger}
}

// ComputeReturns computes one record per entity with a recognised price
// column. When no entity yields a record that way, every entity is retried
// with its first column holding at least two numeric values. That column may
// not be a price at all; such records carry Fallback=true.
func (c *ReturnCalculator) ComputeReturns(series domain.EntityTimeSeries) map[string]domain.ReturnRecord {
	records := make(map[string]domain.ReturnRecord)

	for _, id := range series.IDs() {
		rows := series[id]
		if len(rows) < minObservations {
			c.logger.Debug("Not enough observations; entity skipped",
				slog.String("entity", id), slog.Int("rows", len(rows)))
			continue
		}

		col := FindPriceColumn(series.ColumnOrder(id))
		if col == "" {
			c.logger.Debug("No price column; entity skipped",
				slog.String("entity", id), slog.Any("columns", series.ColumnOrder(id)))
			continue
		}

		if rec, ok := c.compute(id, rows, col); ok {
			records[id] = rec
		}
	}

	if len(records) == 0 && len(series) > 0 {
		c.logger.Warn("No standard price column produced a return; using first numeric column")
		records = c.computeFallback(series)
	}

	return records
}

func (c *ReturnCalculator) computeFallback(series domain.EntityTimeSeries) map[string]domain.ReturnRecord {
	records := make(map[string]domain.ReturnRecord)
	for _, id := range series.IDs() {
		rows := series[id]
		if len(rows) < minObservations {
			continue
		}
		col := firstNumericColumn(series.ColumnOrder(id), rows)
		if col == "" {
			continue
		}
		rec, ok := c.compute(id, rows, col)
		if !ok {
			continue
		}
		rec.ValueColumn = col + FallbackSuffix
		rec.Fallback = true
		records[id] = rec
		c.logger.Warn("Return computed from fallback column",
			slog.String("entity", id),
			slog.String("column", col),
			slog.Float64("pct_change", rec.PctChange))
	}
	return records
}

// compute uses the first and last valid values of rows in date order. Rows
// are sorted on a copy; equal dates keep their input order.
func (c *ReturnCalculator) compute(id string, rows []domain.SeriesRow, col string) (domain.ReturnRecord, bool) {
	rows = append([]domain.SeriesRow(nil), rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	var values []float64
	for _, row := range rows {
		if v, ok := row.Cell(col).Float(); ok {
			values = append(values, v)
		}
	}

	if len(values) < minObservations {
		c.logger.Debug("Not enough valid prices; entity skipped",
			slog.String("entity", id), slog.String("column", col), slog.Int("valid", len(values)))
		return domain.ReturnRecord{}, false
	}

	start, end := values[0], values[len(values)-1]
	if start <= 0 {
		c.logger.Debug("Non-positive start value; entity skipped",
			slog.String("entity", id), slog.Float64("start", start))
		return domain.ReturnRecord{}, false
	}

	return domain.ReturnRecord{
		EntityID:         id,
		StartValue:       start,
		EndValue:         end,
		PctChange:        (end - start) / start * 100,
		ObservationCount: len(values),
		ValueColumn:      col,
	}, true
}

func firstNumericColumn(columns []string, rows []domain.SeriesRow) string {
	for _, col := range columns {
		n := 0
		for _, row := range rows {
			if _, ok := row.Cell(col).Float(); ok {
				n++
			}
		}
		if n >= minObservations {
			return col
		}
	}
	return ""
}

// ComputeReturns computes returns with a default calculator
func ComputeReturns(series domain.EntityTimeSeries) map[string]domain.ReturnRecord {
	return NewReturnCalculator(nil).ComputeReturns(series)
}

// Rank orders records by PctChange descending, ties by EntityID ascending,
// and keeps the first n. n <= 0 means DefaultTopN.
func Rank(records map[string]domain.ReturnRecord, n int) []domain.ReturnRecord {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := make([]domain.ReturnRecord, 0, len(records))
	for _, rec := range records {
		ranked = append(ranked, rec)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].PctChange != ranked[j].PctChange {
			return ranked[i].PctChange > ranked[j].PctChange
		}
		return ranked[i].EntityID < ranked[j].EntityID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
