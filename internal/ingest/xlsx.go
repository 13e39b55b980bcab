package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tealeg/xlsx/v2"
)

// XLSXReader is a second, independent OOXML reader. It tolerates some
// workbooks excelize rejects, such as files with unusual shared string tables.
type XLSXReader struct{}

// Read implements Reader
func (XLSXReader) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open file: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}

	targets := f.Sheets[:1]
	switch s.Sheet {
	case "":
	case AllSheets:
		targets = f.Sheets
	default:
		sheet, ok := f.Sheet[s.Sheet]
		if !ok {
			return nil, fmt.Errorf("xlsx: sheet %q not found", s.Sheet)
		}
		targets = []*xlsx.Sheet{sheet}
	}

	var lastErr error
	for _, sheet := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			rows = append(rows, rowToStrings(row))
		}
		g := newGrid(rows, s.HeaderMode)
		g.Sheet = sheet.Name
		if g.HasData() {
			return g, nil
		}
		lastErr = fmt.Errorf("xlsx: sheet %q has no data", sheet.Name)
	}
	return nil, lastErr
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell != nil {
			cells[j] = cell.String()
		}
	}
	return cells
}
