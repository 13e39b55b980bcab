package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "stockdesk/internal/errors"
	"stockdesk/internal/infrastructure"
	"stockdesk/internal/middleware"
	"stockdesk/internal/operations"
	"stockdesk/internal/services"
	api "stockdesk/pkg/contracts/api/v1"
)

// AnalysisHandler serves the /api/analyses endpoints
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "analyses")),
	}
}

// Routes returns a chi router for analysis endpoints
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartAnalysis)
	r.Get("/", h.ListAnalyses)
	r.Get("/{id}", h.GetAnalysis)
	r.Delete("/{id}", h.CancelAnalysis)
	return r
}

// StartAnalysis handles POST /api/analyses
func (h *AnalysisHandler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body api.AnalysisStartRequest
	if err := h.validator.DecodeJSON(w, r, &body); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	req := operations.Request{
		Folder:  strings.TrimSpace(body.Folder),
		Files:   body.Files,
		Prompt:  body.Prompt,
		TopN:    body.TopN,
		Formats: body.Formats,
	}

	snap, err := h.service.Start(ctx, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.startError(err))
		return
	}

	h.logger.InfoContext(ctx, "analysis started",
		slog.String("run_id", snap.RunID),
		slog.String("folder", req.Folder),
		slog.Int("files", len(req.Files)),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	w.Header().Set("Location", "/api/analyses/"+snap.RunID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, toAnalysisResponse(snap, false))
}

func (h *AnalysisHandler) startError(err error) error {
	var opErr *operations.OperationError
	switch {
	case errors.As(err, &opErr) && opErr.Type == operations.ErrorTypeValidation:
		return apierrors.NewValidationError(opErr.Message)
	case errors.Is(err, services.ErrRunInProgress):
		active, _ := h.service.Active()
		return apierrors.AnalysisRunningError(active)
	case errors.Is(err, services.ErrServiceClosed):
		return apierrors.ErrServiceUnavailable
	default:
		return err
	}
}

// ListAnalyses handles GET /api/analyses
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	snaps := h.service.List()
	resp := api.AnalysisListResponse{
		Analyses: make([]api.AnalysisResponse, 0, len(snaps)),
		Total:    len(snaps),
	}
	for _, snap := range snaps {
		resp.Analyses = append(resp.Analyses, toAnalysisResponse(snap, false))
	}
	render.JSON(w, r, resp)
}

// GetAnalysis handles GET /api/analyses/{id}. Logs are included unless
// ?logs=false is given.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	snap, err := h.service.Get(runID)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.lookupError(runID, err))
		return
	}
	render.JSON(w, r, toAnalysisResponse(snap, r.URL.Query().Get("logs") != "false"))
}

// CancelAnalysis handles DELETE /api/analyses/{id}
func (h *AnalysisHandler) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if err := h.service.Cancel(runID); err != nil {
		h.errorHandler.HandleError(w, r, h.lookupError(runID, err))
		return
	}
	h.logger.InfoContext(ctx, "analysis cancellation requested", slog.String("run_id", runID))

	snap, err := h.service.Get(runID)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.lookupError(runID, err))
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, toAnalysisResponse(snap, false))
}

func (h *AnalysisHandler) lookupError(runID string, err error) error {
	switch {
	case errors.Is(err, services.ErrRunNotFound):
		return apierrors.AnalysisNotFoundError(runID)
	case errors.Is(err, services.ErrRunNotActive):
		e := apierrors.New(http.StatusConflict, "ANALYSIS_NOT_ACTIVE", "analysis "+runID+" has already finished")
		e.ProblemType = apierrors.TypeConflict
		return e
	default:
		return err
	}
}

func toAnalysisResponse(snap services.RunSnapshot, withLogs bool) api.AnalysisResponse {
	resp := api.AnalysisResponse{
		RunID:     snap.RunID,
		State:     snap.State.String(),
		Progress:  snap.Percent,
		Message:   snap.Message,
		StartedAt: snap.StartedAt,
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		resp.FinishedAt = &finished
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
		resp.ErrorType = string(operations.GetErrorType(snap.Err))
	}
	if snap.Result != nil {
		resp.Report = snap.Result.Report
	}
	if withLogs {
		for _, e := range snap.Logs {
			resp.Logs = append(resp.Logs, api.LogEntry{
				Level:   strings.ToLower(e.Level.String()),
				Message: e.Message,
				Time:    e.Time,
			})
		}
	}
	return resp
}
