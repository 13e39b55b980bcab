package http

import (
	"context"

	"stockdesk/internal/operations"
	"stockdesk/internal/services"
)

// AnalysisServiceInterface is the part of services.AnalysisService used by
// AnalysisHandler
type AnalysisServiceInterface interface {
	Start(ctx context.Context, req operations.Request) (services.RunSnapshot, error)
	Get(runID string) (services.RunSnapshot, error)
	List() []services.RunSnapshot
	Active() (string, bool)
	Cancel(runID string) error
}
