package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/shared/testutil"
)

func TestInspectWorkbook(t *testing.T) {
	t.Setenv("STOCKDESK_CONFIG", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "股票A_20250103.xlsx")
	testutil.WriteWorkbook(t, path, testutil.StockColumns,
		[]any{"600000", "浦发银行", 10.5},
		[]any{"000001", "平安银行", 20.0},
		[]any{"300750", "宁德时代", 180.0})
	csvDir := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-rows", "2", "-csv", csvDir, dir}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "category: entity, date: 2025-01-03 (filename)")
	assert.Contains(t, out, "strategy: excelize/header, 3 rows x 3 columns")
	assert.Contains(t, out, "columns: 代码 | 名称 | 收盘")
	assert.Contains(t, out, "identifier column: 代码")
	assert.Contains(t, out, "price column: 收盘")
	assert.Contains(t, out, "浦发银行")
	assert.NotContains(t, out, "宁德时代")

	exported := filepath.Join(csvDir, "股票A_20250103.csv")
	require.FileExists(t, exported)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "300750")
}

func TestInspectUnreadable(t *testing.T) {
	t.Setenv("STOCKDESK_CONFIG", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "unreadable; attempts:")
	assert.Contains(t, stdout.String(), "excelize/header")
}

func TestInspectArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no files given")

	stderr.Reset()
	t.Setenv("STOCKDESK_CONFIG", "")
	code := run(context.Background(), []string{filepath.Join(t.TempDir(), "notes.txt")}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not a spreadsheet or folder")
}
