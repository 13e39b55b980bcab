package domain

import (
	"strconv"
	"strings"
)

// Cell is a single scalar value read from a spreadsheet.
// Missing is true for blank cells and cells beyond the end of a short row.
type Cell struct {
	Value   string `json:"value"`
	Missing bool   `json:"missing,omitempty"`
}

// TextCell builds a cell from raw text, treating blank and NULL-like markers as missing.
func TextCell(s string) Cell {
	trimmed := strings.TrimSpace(s)
	if IsMissingText(trimmed) {
		return Cell{Missing: true}
	}
	return Cell{Value: trimmed}
}

// MissingCell returns an empty cell.
func MissingCell() Cell {
	return Cell{Missing: true}
}

// IsMissingText reports whether already-trimmed text represents a missing value.
func IsMissingText(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "--", "-":
		return true
	}
	return false
}

// Float coerces the cell to a number. Thousands separators, percent signs and
// surrounding whitespace are ignored. Non-numeric cells report false.
func (c Cell) Float() (float64, bool) {
	if c.Missing {
		return 0, false
	}
	s := strings.TrimSpace(c.Value)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RawTable is an ordered set of named columns with heterogeneous rows,
// as produced by ingestion.
type RawTable struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// NewRawTable creates a table from a header and string rows.
// Rows are padded with missing cells to the header width.
func NewRawTable(columns []string, rows [][]string) *RawTable {
	t := &RawTable{Columns: append([]string(nil), columns...)}
	for _, r := range rows {
		row := make([]Cell, len(columns))
		for i := range row {
			if i < len(r) {
				row[i] = TextCell(r[i])
			} else {
				row[i] = MissingCell()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Shape returns the number of rows and columns.
func (t *RawTable) Shape() (rows, cols int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Rows), len(t.Columns)
}

// Empty reports whether the table has no rows or no columns.
func (t *RawTable) Empty() bool {
	r, c := t.Shape()
	return r == 0 || c == 0
}

// AllMissing reports whether every cell of the table is missing.
func (t *RawTable) AllMissing() bool {
	if t == nil {
		return true
	}
	for _, row := range t.Rows {
		for i := range t.Columns {
			if i < len(row) && !row[i].Missing {
				return false
			}
		}
	}
	return true
}

// At returns the cell at row r and column c, treating out-of-range cells as missing.
func (t *RawTable) At(r, c int) Cell {
	if r < 0 || r >= len(t.Rows) || c < 0 {
		return MissingCell()
	}
	row := t.Rows[r]
	if c >= len(row) {
		return MissingCell()
	}
	return row[c]
}

// MissingFraction returns the share of missing cells across the whole table.
func (t *RawTable) MissingFraction() float64 {
	rows, cols := t.Shape()
	if rows == 0 || cols == 0 {
		return 0
	}
	missing := 0
	for r := range t.Rows {
		for c := 0; c < cols; c++ {
			if t.At(r, c).Missing {
				missing++
			}
		}
	}
	return float64(missing) / float64(rows*cols)
}

// Head returns a copy of the table limited to the first n rows.
func (t *RawTable) Head(n int) *RawTable {
	if t == nil {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &RawTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    append([][]Cell(nil), t.Rows[:n]...),
	}
}

// StringRows renders every row as strings, with missing cells as "".
func (t *RawTable) StringRows() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for r := range t.Rows {
		row := make([]string, len(t.Columns))
		for c := range t.Columns {
			row[c] = t.At(r, c).Value
		}
		out = append(out, row)
	}
	return out
}
