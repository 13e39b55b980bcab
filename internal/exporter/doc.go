// Package exporter builds analysis reports and writes them to disk.
//
// Compose turns run results into a domain.AnalysisReport, degrading to an
// explanatory document when no return could be ranked. ReportExporter then
// renders it through one ReportWriter per format:
//
//	md    MarkdownWriter, the main document
//	docx  DocxWriter, a Word document with the same sections
//	xlsx  WorkbookWriter, with Report and Ranking sheets
//	csv   RankingCSVWriter, the ranking table with a UTF-8 BOM
//
// Files are named after the generation time and written atomically.
// CSVWriter also exports ingested tables for the inspect tool.
package exporter
