package exporter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockdesk/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetReport  = "Report"
	SheetRanking = "Ranking"
)

// RankingHeaders are the column titles of the ranking table
var RankingHeaders = []string{"排名", "股票代码", "累计涨幅(%)", "起始价格", "当前价格", "数据点数", "价格列"}

// WorkbookWriter renders a report as an .xlsx workbook with a Report sheet
// holding the document sections and a Ranking sheet holding the table.
type WorkbookWriter struct{}

// Format implements ReportWriter
func (WorkbookWriter) Format() string { return FormatWorkbook }

// Extension implements ReportWriter
func (WorkbookWriter) Extension() string { return ".xlsx" }

// Write implements ReportWriter
func (WorkbookWriter) Write(w io.Writer, r *domain.AnalysisReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetReport); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	put := func(text string, style int) error {
		ref, _ := excelize.CoordinatesToCellName(1, row)
		row++
		if err := f.SetCellValue(SheetReport, ref, text); err != nil {
			return err
		}
		if style != 0 {
			return f.SetCellStyle(SheetReport, ref, ref, style)
		}
		return nil
	}
	heading := func(text string) error {
		row++
		return put(text, bold)
	}

	lines := []func() error{
		func() error { return put(r.Title, bold) },
		func() error { return put("生成时间: "+r.GeneratedAt.Format(DisplayTimeLayout), 0) },
		func() error { return put("分析方式: "+narrativeLabel(r.NarrativeSource), 0) },
	}
	if r.Source != "" {
		lines = append(lines, func() error { return put("数据来源: "+r.Source, 0) })
	}
	for _, fn := range lines {
		if err := fn(); err != nil {
			return fmt.Errorf("failed to write report sheet: %w", err)
		}
	}

	sections := []section{
		{"分析需求", nonEmpty(r.Prompt)},
		{"数据概况", summaryLines(r.Summary)},
	}
	if r.Degraded {
		sections = append(sections,
			section{"问题分析", append([]string{r.DegradedReason}, r.Diagnostics...)},
			section{"建议", r.Suggestions},
		)
	} else if r.Summary.FallbackPrice {
		sections = append(sections, section{"价格说明", []string{FallbackPriceNote}})
	}
	sections = append(sections,
		section{"分析结果", splitLines(r.Narrative)},
		section{"风险提示", []string{r.Disclaimer}},
	)

	for _, s := range sections {
		if len(s.body) == 0 {
			continue
		}
		if err := heading(s.title); err != nil {
			return fmt.Errorf("failed to write report sheet: %w", err)
		}
		for _, line := range s.body {
			if err := put(line, 0); err != nil {
				return fmt.Errorf("failed to write report sheet: %w", err)
			}
		}
	}
	if err := f.SetColWidth(SheetReport, "A", "A", 100); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetRanking); err != nil {
		return fmt.Errorf("failed to create ranking sheet: %w", err)
	}
	headers := make([]any, len(RankingHeaders))
	for i, h := range RankingHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(SheetRanking, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write ranking header: %w", err)
	}
	if err := f.SetCellStyle(SheetRanking, "A1", "G1", bold); err != nil {
		return err
	}
	for i, rec := range r.TopEntities {
		ref, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{i + 1, rec.EntityID, round2(rec.PctChange), round2(rec.StartValue),
			round2(rec.EndValue), rec.ObservationCount, rec.ValueColumn}
		if err := f.SetSheetRow(SheetRanking, ref, &values); err != nil {
			return fmt.Errorf("failed to write ranking row %d: %w", i+1, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type section struct {
	title string
	body  []string
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{strings.TrimSpace(s)}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
