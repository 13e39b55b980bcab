package domain

import (
	"time"
)

// NarrativeSource tells whether the narrative came from the remote model.
type NarrativeSource string

const (
	NarrativeFromLLM      NarrativeSource = "llm"
	NarrativeFromFallback NarrativeSource = "fallback"
)

// ColumnMean is the average of one numeric column.
type ColumnMean struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
}

// DatasetStats summarises one category of ingested data.
type DatasetStats struct {
	Files       int          `json:"files"`
	Ingested    int          `json:"ingested"`
	Skipped     int          `json:"skipped"`
	Rows        int          `json:"rows"`
	Identifiers int          `json:"identifiers"`
	DateFrom    time.Time    `json:"date_from,omitempty"`
	DateTo      time.Time    `json:"date_to,omitempty"`
	Means       []ColumnMean `json:"means,omitempty"`
}

// SummaryStats is the bounded description of a run's input data.
type SummaryStats struct {
	Aggregate     DatasetStats `json:"aggregate"`
	Entity        DatasetStats `json:"entity"`
	Entities      int          `json:"entities"`
	ReturnsCount  int          `json:"returns_count"`
	RowsDropped   int          `json:"rows_dropped"`
	FallbackPrice bool         `json:"fallback_price,omitempty"`
}

// AnalysisReport is the document produced by a run.
type AnalysisReport struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	Title           string          `json:"title"`
	Prompt          string          `json:"prompt"`
	Source          string          `json:"source,omitempty"`
	Summary         SummaryStats    `json:"summary"`
	Narrative       string          `json:"narrative"`
	NarrativeSource NarrativeSource `json:"narrative_source"`
	TopEntities     []ReturnRecord  `json:"top_entities"`
	Degraded        bool            `json:"degraded"`
	DegradedReason  string          `json:"degraded_reason,omitempty"`
	Diagnostics     []string        `json:"diagnostics,omitempty"`
	Suggestions     []string        `json:"suggestions,omitempty"`
	Disclaimer      string          `json:"disclaimer"`
	FilePath        string          `json:"file_path,omitempty"`
	ExtraFiles      []string        `json:"extra_files,omitempty"`
}
