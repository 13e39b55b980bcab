package domain

import (
	"sort"
	"time"
)

// SeriesRow is one observation for an entity, carrying every column of the
// source row keyed by repaired column name.
type SeriesRow struct {
	EntityID string
	Date     time.Time
	Columns  []string
	Values   map[string]Cell
	Source   string
}

// Cell returns the value of the named column, or a missing cell.
func (r SeriesRow) Cell(column string) Cell {
	if c, ok := r.Values[column]; ok {
		return c
	}
	return MissingCell()
}

// EntityTimeSeries maps an entity identifier to its observations ordered by date.
type EntityTimeSeries map[string][]SeriesRow

// Add appends a row under its own EntityID.
func (s EntityTimeSeries) Add(row SeriesRow) {
	s[row.EntityID] = append(s[row.EntityID], row)
}

// SortByDate orders each entity's rows by date, keeping file order for equal dates.
func (s EntityTimeSeries) SortByDate() {
	for id := range s {
		rows := s[id]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Date.Before(rows[j].Date)
		})
	}
}

// IDs returns the entity identifiers in ascending order.
func (s EntityTimeSeries) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RowCount returns the total number of observations.
func (s EntityTimeSeries) RowCount() int {
	n := 0
	for _, rows := range s {
		n += len(rows)
	}
	return n
}

// ColumnOrder returns the union of column names in first-seen order.
func (s EntityTimeSeries) ColumnOrder(id string) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range s[id] {
		for _, c := range row.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}
