package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Column layouts of the market fixture
var (
	StockColumns = []string{"代码", "名称", "收盘"}
	BoardColumns = []string{"板块", "涨跌幅", "成交额"}
)

// WriteWorkbook saves a single-sheet .xlsx at path, creating parent folders
func WriteWorkbook(t testing.TB, path string, header []string, rows ...[]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &hdr))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

// WriteMarketFolder writes two daily entity workbooks and one aggregate
// workbook under dir. Between the two days 600000 moves 10 → 12.5 (+25%)
// and 000001 moves 20 → 19 (-5%).
func WriteMarketFolder(t testing.TB, dir string) {
	t.Helper()
	WriteWorkbook(t, filepath.Join(dir, "个股", "股票A_20250101.xlsx"), StockColumns,
		[]any{"600000", "浦发银行", 10.0}, []any{"000001", "平安银行", 20.0})
	WriteWorkbook(t, filepath.Join(dir, "个股", "股票A_20250102.xlsx"), StockColumns,
		[]any{"600000", "浦发银行", 12.5}, []any{"000001", "平安银行", 19.0})
	WriteWorkbook(t, filepath.Join(dir, "板块_20250102.xlsx"), BoardColumns,
		[]any{"银行", 1.5, 1000}, []any{"地产", -0.5, 800})
}
