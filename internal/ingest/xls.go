package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
)

// oleSignature starts every compound document, including BIFF8 workbooks
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// XLSReader reads legacy binary (BIFF) .xls workbooks
type XLSReader struct{}

// Read implements Reader
func (XLSReader) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xls: open file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, len(oleSignature))
	if _, err := io.ReadFull(f, magic); err != nil || !bytes.Equal(magic, oleSignature) {
		return nil, errors.New("xls: not a binary workbook")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("xls: rewind: %w", err)
	}

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("xls: parse workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("xls: workbook has no sheets")
	}

	var targets []*xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		switch s.Sheet {
		case "", AllSheets:
			targets = append(targets, sheet)
		default:
			if sheet.Name == s.Sheet {
				targets = append(targets, sheet)
			}
		}
		if s.Sheet == "" && len(targets) == 1 {
			break
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("xls: sheet %q not found", s.Sheet)
	}

	lastErr := errors.New("xls: workbook has no data")
	for _, sheet := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := newGrid(sheetRows(sheet), s.HeaderMode)
		g.Sheet = sheet.Name
		if g.HasData() {
			return g, nil
		}
		lastErr = fmt.Errorf("xls: sheet %q has no data", sheet.Name)
	}
	return nil, lastErr
}

func sheetRows(sheet *xls.WorkSheet) [][]string {
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows
}
