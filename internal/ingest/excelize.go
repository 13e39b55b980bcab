package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelizeReader reads OOXML workbooks with excelize
type ExcelizeReader struct{}

// Read implements Reader
func (ExcelizeReader) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	targets := sheets[:1]
	switch s.Sheet {
	case "":
	case AllSheets:
		targets = sheets
	default:
		targets = []string{s.Sheet}
	}

	var lastErr error
	for _, name := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			lastErr = fmt.Errorf("failed to read sheet %q: %w", name, err)
			continue
		}
		g := newGrid(rows, s.HeaderMode)
		g.Sheet = name
		if g.HasData() {
			return g, nil
		}
		lastErr = fmt.Errorf("sheet %q has no data", name)
	}
	return nil, lastErr
}
