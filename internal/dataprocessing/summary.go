package dataprocessing

import (
	"stockdesk/pkg/contracts/domain"
)

// maxMeanColumns bounds the per-column means included in a summary
const maxMeanColumns = 5

// CategoryInput describes the files of one category seen by a run
type CategoryInput struct {
	Files   int
	Skipped int
	Tables  []domain.DatedTable
}

// SummarizeCategory computes row, identifier and date-range counts plus the
// means of the first numeric columns. A column is numeric when every
// non-missing value parses as a number. The identifier column is excluded.
func SummarizeCategory(in CategoryInput) domain.DatasetStats {
	stats := domain.DatasetStats{
		Files:    in.Files,
		Ingested: len(in.Tables),
		Skipped:  in.Skipped,
	}

	ids := make(map[string]struct{})
	type acc struct {
		sum      float64
		n        int
		rejected bool
	}
	accs := make(map[string]*acc)
	var order []string

	for _, dt := range in.Tables {
		if dt.Table == nil {
			continue
		}
		if stats.DateFrom.IsZero() || dt.File.Date.Before(stats.DateFrom) {
			stats.DateFrom = dt.File.Date
		}
		if dt.File.Date.After(stats.DateTo) {
			stats.DateTo = dt.File.Date
		}

		stats.Rows += len(dt.Table.Rows)
		idCol := FindIdentifierColumn(dt.Table.Columns)

		for c, col := range dt.Table.Columns {
			if c == idCol {
				continue
			}
			a, ok := accs[col]
			if !ok {
				a = &acc{}
				accs[col] = a
				order = append(order, col)
			}
			for r := range dt.Table.Rows {
				cell := dt.Table.At(r, c)
				if cell.Missing {
					continue
				}
				v, ok := cell.Float()
				if !ok {
					a.rejected = true
					break
				}
				a.sum += v
				a.n++
			}
		}

		if idCol >= 0 {
			for r := range dt.Table.Rows {
				if cell := dt.Table.At(r, idCol); !cell.Missing {
					ids[cell.Value] = struct{}{}
				}
			}
		}
	}

	stats.Identifiers = len(ids)
	for _, col := range order {
		a := accs[col]
		if a.rejected || a.n == 0 {
			continue
		}
		stats.Means = append(stats.Means, domain.ColumnMean{Column: col, Mean: a.sum / float64(a.n)})
		if len(stats.Means) == maxMeanColumns {
			break
		}
	}

	return stats
}
