package ingest

import "strings"

// Grid is the raw cell text produced by a reader before column names are
// repaired. Header is nil in headerless mode.
type Grid struct {
	Header []string
	Rows   [][]string
	// Sheet is set by workbook readers to the sheet that was read
	Sheet string
}

// newGrid splits rows into header and data. Leading blank rows are skipped.
func newGrid(rows [][]string, mode HeaderMode) *Grid {
	start := 0
	for start < len(rows) && blankRow(rows[start]) {
		start++
	}
	rows = rows[start:]

	g := &Grid{}
	if mode == HeaderFirstRow && len(rows) > 0 {
		g.Header = rows[0]
		rows = rows[1:]
	}
	g.Rows = rows
	return g
}

// Width is the widest of the header and every row
func (g *Grid) Width() int {
	w := len(g.Header)
	for _, r := range g.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// HasData reports whether at least one data cell is non-blank
func (g *Grid) HasData() bool {
	if g == nil {
		return false
	}
	for _, r := range g.Rows {
		if !blankRow(r) {
			return true
		}
	}
	return false
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
