package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gomutex/godocx"

	"stockdesk/pkg/contracts/domain"
)

// DocxWriter renders a report as a Word document with the same sections as
// the Markdown report
type DocxWriter struct{}

// Format implements ReportWriter
func (DocxWriter) Format() string { return FormatDocx }

// Extension implements ReportWriter
func (DocxWriter) Extension() string { return ".docx" }

// Write implements ReportWriter
func (DocxWriter) Write(w io.Writer, r *domain.AnalysisReport) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	doc.AddHeading(r.Title, 0)
	meta := []string{"生成时间: " + r.GeneratedAt.Format(DisplayTimeLayout)}
	if r.Source != "" {
		meta = append(meta, "数据来源: "+r.Source)
	}
	meta = append(meta,
		"分析方式: "+narrativeLabel(r.NarrativeSource),
		fmt.Sprintf("推荐股票数量: %d 只", len(r.TopEntities)))
	for _, line := range meta {
		doc.AddParagraph(line)
	}

	if p := strings.TrimSpace(r.Prompt); p != "" {
		doc.AddHeading("分析需求", 1)
		doc.AddParagraph(p)
	}

	doc.AddHeading("数据概况", 1)
	for _, line := range summaryLines(r.Summary) {
		doc.AddParagraph(line).Style("List Bullet")
	}

	if r.Degraded {
		doc.AddHeading("问题分析", 1)
		doc.AddParagraph(r.DegradedReason + "，可能的原因:")
		for _, d := range r.Diagnostics {
			doc.AddParagraph(d).Style("List Number")
		}
		doc.AddHeading("建议", 1)
		for _, s := range r.Suggestions {
			doc.AddParagraph(s).Style("List Number")
		}
	} else {
		doc.AddHeading("推荐股票列表", 1)
		table := doc.AddTable()
		table.Style("LightList-Accent1")
		header := table.AddRow()
		for _, h := range RankingHeaders[:5] {
			header.AddCell().AddParagraph(h)
		}
		for i, rec := range r.TopEntities {
			row := table.AddRow()
			for _, v := range []string{
				formatInt(i + 1), rec.EntityID, formatPct(rec.PctChange),
				formatFloat(rec.StartValue), formatFloat(rec.EndValue),
			} {
				row.AddCell().AddParagraph(v)
			}
		}
		if r.Summary.FallbackPrice {
			doc.AddParagraph(FallbackPriceNote)
		}
	}

	if lines := splitLines(r.Narrative); len(lines) > 0 {
		doc.AddHeading("分析结果", 1)
		for _, line := range lines {
			doc.AddParagraph(line)
		}
	}

	doc.AddHeading("风险提示", 1)
	doc.AddParagraph(r.Disclaimer)

	return saveDocument(w, doc.SaveTo)
}

// saveDocument runs a save-to-path function against a temp file and copies
// the result into w
func saveDocument(w io.Writer, save func(string) error) error {
	tmp, err := os.CreateTemp("", "stockdesk-*.docx")
	if err != nil {
		return fmt.Errorf("failed to create temp document: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := save(path); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen document: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy document: %w", err)
	}
	return nil
}
