package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/shared/testutil"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STOCKDESK_CONFIG", "")
	t.Setenv("STOCKDESK_LLM_PROVIDER", "none")
	t.Setenv("DEEPSEEK_API_KEY", "")
}

func TestRunWritesReport(t *testing.T) {
	isolateEnv(t)
	in := t.TempDir()
	out := t.TempDir()
	testutil.WriteWorkbook(t, filepath.Join(in, "股票A_20250101.xlsx"), testutil.StockColumns,
		[]any{"600000", "浦发银行", 10.0}, []any{"000001", "平安银行", 20.0})
	testutil.WriteWorkbook(t, filepath.Join(in, "股票A_20250102.xlsx"), testutil.StockColumns,
		[]any{"600000", "浦发银行", 15.0}, []any{"000001", "平安银行", 18.0})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-folder", in, "-prompt", "分析近期走势", "-out", out, "-format", "md, csv"},
		&stdout, &stderr)

	require.Equal(t, 0, code, "stdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
	assert.Contains(t, stdout.String(), "[100%]")
	assert.Contains(t, stdout.String(), "Report: ")
	assert.Contains(t, stdout.String(), "entities 2, returns 2")

	md, err := filepath.Glob(filepath.Join(out, "*.md"))
	require.NoError(t, err)
	require.Len(t, md, 1)
	csv, err := filepath.Glob(filepath.Join(out, "*.csv"))
	require.NoError(t, err)
	require.Len(t, csv, 1)

	body, err := os.ReadFile(md[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "50.00%")
}

func TestRunFailures(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "no prompt",
			args:     []string{"-folder", "."},
			wantCode: 2,
			wantErr:  "analysis prompt is empty",
		},
		{
			name:     "no input",
			args:     []string{"-prompt", "x"},
			wantCode: 2,
			wantErr:  "no input folder or files given",
		},
		{
			name:     "unknown flag",
			args:     []string{"-nope"},
			wantCode: 2,
		},
		{
			name:     "bad format",
			args:     []string{"-folder", ".", "-prompt", "x", "-format", "docx"},
			wantCode: 1,
			wantErr:  "failed to load configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestRunStopsWhenOutputFails(t *testing.T) {
	isolateEnv(t)
	in := t.TempDir()
	testutil.WriteMarketFolder(t, in)

	var stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-folder", in, "-prompt", "分析", "-out", t.TempDir()},
		brokenWriter{}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to write progress: pipe closed")
}

func TestRunNoSpreadsheets(t *testing.T) {
	isolateEnv(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-folder", t.TempDir(), "-prompt", "x", "-out", t.TempDir()}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Analysis failed")
	assert.Contains(t, stdout.String(), "no .xls or .xlsx files found")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"md", "xlsx"}, splitList(" md, ,xlsx "))
	assert.Nil(t, splitList(""))
}
