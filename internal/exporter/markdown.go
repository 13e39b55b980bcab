package exporter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"stockdesk/pkg/contracts/domain"
)

// MarkdownWriter renders a report as a Markdown document
type MarkdownWriter struct{}

// Format implements ReportWriter
func (MarkdownWriter) Format() string { return FormatMarkdown }

// Extension implements ReportWriter
func (MarkdownWriter) Extension() string { return ".md" }

// Write implements ReportWriter
func (MarkdownWriter) Write(w io.Writer, r *domain.AnalysisReport) error {
	b := bufio.NewWriter(w)

	fmt.Fprintf(b, "# %s\n\n", r.Title)
	fmt.Fprintf(b, "- 生成时间: %s\n", r.GeneratedAt.Format(DisplayTimeLayout))
	if r.Source != "" {
		fmt.Fprintf(b, "- 数据来源: %s\n", r.Source)
	}
	fmt.Fprintf(b, "- 分析方式: %s\n", narrativeLabel(r.NarrativeSource))
	fmt.Fprintf(b, "- 推荐股票数量: %d 只\n\n", len(r.TopEntities))

	if p := strings.TrimSpace(r.Prompt); p != "" {
		fmt.Fprintf(b, "## 分析需求\n\n%s\n\n", p)
	}

	b.WriteString("## 数据概况\n\n")
	for _, line := range summaryLines(r.Summary) {
		fmt.Fprintf(b, "- %s\n", line)
	}
	b.WriteString("\n")

	if r.Degraded {
		b.WriteString("## 问题分析\n\n")
		fmt.Fprintf(b, "%s，可能的原因:\n\n", r.DegradedReason)
		for i, d := range r.Diagnostics {
			fmt.Fprintf(b, "%d. %s\n", i+1, d)
		}
		b.WriteString("\n## 建议\n\n")
		for i, s := range r.Suggestions {
			fmt.Fprintf(b, "%d. %s\n", i+1, s)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("## 推荐股票列表\n\n")
		b.WriteString("| 排名 | 股票代码 | 累计涨幅(%) | 起始价格 | 当前价格 |\n")
		b.WriteString("|---:|---|---:|---:|---:|\n")
		for i, rec := range r.TopEntities {
			fmt.Fprintf(b, "| %d | %s | %s | %s | %s |\n",
				i+1, cell(rec.EntityID), formatPct(rec.PctChange),
				formatFloat(rec.StartValue), formatFloat(rec.EndValue))
		}
		if r.Summary.FallbackPrice {
			fmt.Fprintf(b, "\n> %s\n", FallbackPriceNote)
		}
		b.WriteString("\n")
	}

	if n := strings.TrimSpace(r.Narrative); n != "" {
		fmt.Fprintf(b, "## 分析结果\n\n%s\n\n", n)
	}

	fmt.Fprintf(b, "## 风险提示\n\n%s\n", r.Disclaimer)

	return b.Flush()
}

func narrativeLabel(src domain.NarrativeSource) string {
	if src == domain.NarrativeFromLLM {
		return "AI 模型分析"
	}
	return "本地基础分析"
}

// summaryLines describes both data categories and the return computation
func summaryLines(s domain.SummaryStats) []string {
	lines := []string{
		datasetLine("板块数据", "个板块", s.Aggregate),
		datasetLine("个股数据", "支股票", s.Entity),
		fmt.Sprintf("可计算收益率的股票: %d / %d", s.ReturnsCount, s.Entities),
	}
	if s.RowsDropped > 0 {
		lines = append(lines, fmt.Sprintf("清洗剔除的行数: %d", s.RowsDropped))
	}
	return lines
}

func datasetLine(label, unit string, d domain.DatasetStats) string {
	if d.Ingested == 0 {
		return fmt.Sprintf("%s: 无（文件 %d 个，跳过 %d 个）", label, d.Files, d.Skipped)
	}
	return fmt.Sprintf("%s: 共 %d 条记录，涵盖 %d %s，时间 %s 至 %s（文件 %d 个，跳过 %d 个）",
		label, d.Rows, d.Identifiers, unit, formatDate(d.DateFrom), formatDate(d.DateTo), d.Files, d.Skipped)
}
