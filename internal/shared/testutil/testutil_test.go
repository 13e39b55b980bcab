package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, h := NewTestLogger(t)
	child := logger.With(slog.String("component", "ingest"))

	logger.Info("plain")
	child.Warn("file skipped", slog.String("file", "a.xls"))

	records := h.Records()
	require.Len(t, records, 2)
	assert.Empty(t, records[0].Attrs)

	r := AssertLogged(t, h, slog.LevelWarn, "skipped")
	assert.Equal(t, "ingest", r.Attrs["component"])
	assert.Equal(t, "a.xls", r.Attrs["file"])

	_, ok := h.Find(slog.LevelError, "skipped")
	assert.False(t, ok)
}

func TestWriteMarketFolder(t *testing.T) {
	dir := t.TempDir()
	WriteMarketFolder(t, dir)

	f, err := excelize.OpenFile(filepath.Join(dir, "个股", "股票A_20250102.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, StockColumns, rows[0])
	assert.Equal(t, "12.5", rows[1][2])

	assert.FileExists(t, filepath.Join(dir, "板块_20250102.xlsx"))
}
