package exporter

import (
	"archive/zip"
	"bytes"
	"io"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockdesk/internal/files"
	"stockdesk/pkg/contracts/domain"
)

var generated = time.Date(2025, 1, 3, 9, 30, 0, 0, time.Local)

func sampleInput() ComposeInput {
	return ComposeInput{
		GeneratedAt:     generated,
		Prompt:          "预测未来三天涨幅最大的股票",
		Source:          "/data/2025",
		Narrative:       "市场整体向好\n\n白酒板块领涨",
		NarrativeSource: domain.NarrativeFromLLM,
		Summary: domain.SummaryStats{
			Aggregate:    domain.DatasetStats{Files: 1, Ingested: 1, Rows: 20, Identifiers: 20},
			Entity:       domain.DatasetStats{Files: 3, Ingested: 3, Rows: 9, Identifiers: 3},
			Entities:     3,
			ReturnsCount: 2,
		},
		Top: []domain.ReturnRecord{
			{EntityID: "600519", StartValue: 10, EndValue: 15, PctChange: 50, ObservationCount: 3, ValueColumn: "收盘"},
			{EntityID: "000|001", StartValue: 10, EndValue: 9, PctChange: -10, ObservationCount: 3, ValueColumn: "收盘"},
		},
	}
}

func TestCompose(t *testing.T) {
	r := Compose(sampleInput())

	assert.False(t, r.Degraded)
	assert.Equal(t, TitleFull, r.Title)
	assert.Equal(t, Disclaimer, r.Disclaimer)
	assert.Len(t, r.TopEntities, 2)
	assert.Empty(t, r.Diagnostics)
}

func TestCompose_Degraded(t *testing.T) {
	in := sampleInput()
	in.Top = nil
	in.Diagnostics = []string{"跳过无法读取的文件: bad.xls"}

	r := Compose(in)
	assert.True(t, r.Degraded)
	assert.Equal(t, TitleDegraded, r.Title)
	assert.Equal(t, ReasonNoReturns, r.DegradedReason)
	assert.Contains(t, r.Diagnostics, "跳过无法读取的文件: bad.xls")
	assert.NotEmpty(t, r.Suggestions)

	in.Summary.Entity = domain.DatasetStats{Files: 2, Skipped: 2}
	r = Compose(in)
	assert.Equal(t, ReasonNoEntityData, r.DegradedReason)
	assert.Contains(t, r.Diagnostics, "未找到股票代码列")
}

func TestCompose_DefaultsGeneratedAt(t *testing.T) {
	r := Compose(ComposeInput{})
	assert.False(t, r.GeneratedAt.IsZero())
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarkdownWriter{}.Write(&buf, Compose(sampleInput())))
	md := buf.String()

	assert.True(t, strings.HasPrefix(md, "# "+TitleFull+"\n"))
	assert.Contains(t, md, "- 生成时间: 2025-01-03 09:30:00")
	assert.Contains(t, md, "- 分析方式: AI 模型分析")
	assert.Contains(t, md, "## 分析需求\n\n预测未来三天涨幅最大的股票")
	assert.Contains(t, md, "| 1 | 600519 | 50.00% | 10.00 | 15.00 |")
	assert.Contains(t, md, "| 2 | 000/001 | -10.00% | 10.00 | 9.00 |")
	assert.Contains(t, md, "白酒板块领涨")
	assert.Contains(t, md, "## 风险提示\n\n"+Disclaimer)
	assert.NotContains(t, md, "## 问题分析")
}

func TestMarkdownWriter_Degraded(t *testing.T) {
	in := sampleInput()
	in.Top = nil
	in.NarrativeSource = domain.NarrativeFromFallback

	var buf bytes.Buffer
	require.NoError(t, MarkdownWriter{}.Write(&buf, Compose(in)))
	md := buf.String()

	assert.Contains(t, md, "# "+TitleDegraded)
	assert.Contains(t, md, "## 问题分析")
	assert.Contains(t, md, "1. 数据中不包含标准的价格列")
	assert.Contains(t, md, "## 建议")
	assert.Contains(t, md, "本地基础分析")
	assert.NotContains(t, md, "| 排名 |")
	assert.Contains(t, md, Disclaimer)
}

func TestWorkbookWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WorkbookWriter{}.Write(&buf, Compose(sampleInput())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReport, SheetRanking}, f.GetSheetList())

	title, err := f.GetCellValue(SheetReport, "A1")
	require.NoError(t, err)
	assert.Equal(t, TitleFull, title)

	rows, err := f.GetRows(SheetRanking)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RankingHeaders, rows[0])
	assert.Equal(t, "600519", rows[1][1])
	assert.Equal(t, "50", rows[1][2])

	reportRows, err := f.GetRows(SheetReport)
	require.NoError(t, err)
	var all []string
	for _, r := range reportRows {
		all = append(all, r...)
	}
	assert.Contains(t, all, Disclaimer)
	assert.Contains(t, all, "白酒板块领涨")
}

func TestWorkbookWriterFallbackNote(t *testing.T) {
	in := sampleInput()
	in.Summary.FallbackPrice = true

	var buf bytes.Buffer
	require.NoError(t, WorkbookWriter{}.Write(&buf, Compose(in)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetReport)
	require.NoError(t, err)
	var all []string
	for _, r := range rows {
		all = append(all, r...)
	}
	assert.Contains(t, all, FallbackPriceNote)
}

func docxText(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(body)
	}
	t.Fatal("word/document.xml missing")
	return ""
}

func TestDocxWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DocxWriter{}.Write(&buf, Compose(sampleInput())))

	body := docxText(t, buf.Bytes())
	for _, want := range []string{TitleFull, "分析需求", "推荐股票列表", "600519", "50.00%", "白酒板块领涨", Disclaimer} {
		assert.Contains(t, body, want)
	}
}

func TestDocxWriter_Degraded(t *testing.T) {
	in := sampleInput()
	in.Top = nil

	var buf bytes.Buffer
	require.NoError(t, DocxWriter{}.Write(&buf, Compose(in)))

	body := docxText(t, buf.Bytes())
	assert.Contains(t, body, TitleDegraded)
	assert.Contains(t, body, "建议")
	assert.NotContains(t, body, "推荐股票列表")
}

func TestRankingCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RankingCSVWriter{}.Write(&buf, Compose(sampleInput())))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, RankingHeaders, records[0])
	assert.Equal(t, []string{"1", "600519", "50.00", "10.00", "15.00", "3", "收盘"}, records[1])
}

func TestReportExporter_Export(t *testing.T) {
	dir := t.TempDir()
	e := NewReportExporter(files.NewManager(dir, nil), nil)
	r := Compose(sampleInput())

	require.NoError(t, e.Export(r, []string{"md", "xlsx", "csv", "docx"}))

	assert.Equal(t, filepath.Join(dir, "股票分析报告_20250103_093000.md"), r.FilePath)
	require.Len(t, r.ExtraFiles, 3)
	assert.Equal(t, filepath.Join(dir, "股票分析报告_20250103_093000.xlsx"), r.ExtraFiles[0])
	assert.Equal(t, filepath.Join(dir, "ranking_20250103_093000.csv"), r.ExtraFiles[1])
	assert.Equal(t, filepath.Join(dir, "股票分析报告_20250103_093000.docx"), r.ExtraFiles[2])
	for _, p := range append([]string{r.FilePath}, r.ExtraFiles...) {
		assert.FileExists(t, p)
	}

	again := Compose(sampleInput())
	require.NoError(t, e.Export(again, nil))
	assert.Equal(t, filepath.Join(dir, "股票分析报告_20250103_093000_2.md"), again.FilePath)
}

func TestReportExporter_Errors(t *testing.T) {
	dir := t.TempDir()
	e := NewReportExporter(files.NewManager(dir, nil), nil)
	assert.Error(t, e.Export(Compose(sampleInput()), []string{"pdf"}))

	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	e = NewReportExporter(files.NewManager(filepath.Join(blocker, "out"), nil), nil)
	r := Compose(sampleInput())
	assert.Error(t, e.Export(r, []string{"md"}))
	assert.Empty(t, r.FilePath)
}

func TestCSVWriter_WriteTable(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(files.NewManager(dir, nil), nil)
	table := domain.NewRawTable([]string{"代码", "收盘"}, [][]string{{"600519", "1500"}, {"000001", ""}})

	require.NoError(t, w.WriteTable("table.csv", table))

	raw, err := os.ReadFile(filepath.Join(dir, "table.csv"))
	require.NoError(t, err)
	assert.Equal(t, "\ufeff代码,收盘\n600519,1500\n000001,\n", string(raw))

	assert.Error(t, w.WriteTable("nil.csv", nil))
}
