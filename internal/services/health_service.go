package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"stockdesk/internal/infrastructure"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService reports on the service and its dependencies
type HealthService struct {
	version     string
	outputDir   string
	llmProvider string
	llmReady    bool
	hub         ClientCounter
	analyses    *AnalysisService
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthOptions configures a HealthService
type HealthOptions struct {
	Version     string
	OutputDir   string
	LLMProvider string
	LLMReady    bool
	Hub         ClientCounter
	Analyses    *AnalysisService
}

// NewHealthService creates a HealthService
func NewHealthService(opts HealthOptions, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &HealthService{
		version:     opts.Version,
		outputDir:   opts.OutputDir,
		llmProvider: opts.LLMProvider,
		llmReady:    opts.LLMReady,
		hub:         opts.Hub,
		analyses:    opts.Analyses,
		startTime:   time.Now(),
		logger:      infrastructure.WithComponent(logger, "health_service"),
	}
}

// Check builds the current health status. An unwritable output directory
// makes the service unhealthy; a missing language model only degrades it,
// since reports fall back to the local narrative.
func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Runtime: map[string]any{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"goroutines": runtime.NumGoroutine(),
		},
		Services: make(map[string]ServiceHealth),
	}

	if err := checkWritable(h.outputDir); err != nil {
		status.Services["output"] = ServiceHealth{Status: StatusUnhealthy, Message: err.Error()}
		status.Status = StatusUnhealthy
		h.logger.WarnContext(ctx, "Output directory not writable",
			slog.String("dir", h.outputDir),
			slog.String("error", err.Error()))
	} else {
		status.Services["output"] = ServiceHealth{Status: StatusHealthy, Message: h.outputDir}
	}

	if h.llmReady {
		status.Services["llm"] = ServiceHealth{Status: StatusHealthy, Message: h.llmProvider}
	} else {
		status.Services["llm"] = ServiceHealth{Status: StatusDegraded, Message: "not configured, local analysis only"}
		if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	if h.hub != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d clients", h.hub.ClientCount()),
		}
	}

	if h.analyses != nil {
		msg := "idle"
		if id, ok := h.analyses.Active(); ok {
			msg = "running " + id
		}
		status.Services["analysis"] = ServiceHealth{Status: StatusHealthy, Message: msg}
	}

	return status
}

// checkWritable creates and removes a temporary file in dir
func checkWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
