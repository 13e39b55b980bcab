// Package events defines the messages pushed to WebSocket clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeAnalysisSnapshot carries the full state of one run
	MessageTypeAnalysisSnapshot MessageType = "analysis:snapshot"
	// MessageTypeAnalysisLog carries one log line of a run
	MessageTypeAnalysisLog MessageType = "analysis:log"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope of every WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      any         `json:"data,omitempty"`
}

// NewMessage creates a Message stamped with the current time
func NewMessage(t MessageType, data any, traceID string) Message {
	return Message{Type: t, Timestamp: time.Now().UTC(), TraceID: traceID, Data: data}
}

// AnalysisSnapshot is the primary progress message. Clients replace their
// view of a run with each snapshot they receive.
type AnalysisSnapshot struct {
	RunID       string     `json:"run_id"`
	State       string     `json:"state"`
	Progress    int        `json:"progress"` // 0-100
	Message     string     `json:"message,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorType   string     `json:"error_type,omitempty"`
	ReportPath  string     `json:"report_path,omitempty"`
	Degraded    bool       `json:"degraded,omitempty"`
}

// LogLine is a free-text progress message
type LogLine struct {
	RunID   string    `json:"run_id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ErrorMessage describes a failure pushed to clients
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Retry   bool   `json:"retry"`
}
