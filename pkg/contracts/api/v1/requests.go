// Package api contains the HTTP request and response contracts of the
// analysis API.
package api

import (
	"time"

	"stockdesk/pkg/contracts/domain"
)

// AnalysisStartRequest starts an analysis run. Exactly one of Folder and
// Files is expected; Folder wins when both are set.
type AnalysisStartRequest struct {
	Folder  string   `json:"folder,omitempty" validate:"required_without=Files"`
	Files   []string `json:"files,omitempty" validate:"required_without=Folder,omitempty,dive,required"`
	Prompt  string   `json:"prompt" validate:"required,max=4000"`
	TopN    int      `json:"top_n,omitempty" validate:"omitempty,min=1,max=500"`
	Formats []string `json:"formats,omitempty" validate:"omitempty,dive,oneof=md xlsx csv docx"`
}

// AnalysisResponse describes a run
type AnalysisResponse struct {
	RunID      string                 `json:"run_id"`
	State      string                 `json:"state"`
	Progress   int                    `json:"progress"`
	Message    string                 `json:"message,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorType  string                 `json:"error_type,omitempty"`
	Report     *domain.AnalysisReport `json:"report,omitempty"`
	Logs       []LogEntry             `json:"logs,omitempty"`
}

// LogEntry is one log line of a run
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// AnalysisListResponse lists known runs, newest first
type AnalysisListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int                `json:"total"`
}
