package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "stockdesk/internal/errors"
	"stockdesk/internal/operations"
	"stockdesk/internal/services"
	api "stockdesk/pkg/contracts/api/v1"
	"stockdesk/pkg/contracts/domain"
)

type fakeAnalysisService struct {
	startErr  error
	started   []operations.Request
	runs      map[string]services.RunSnapshot
	active    string
	cancelErr error
	cancelled []string
}

func newFakeService() *fakeAnalysisService {
	return &fakeAnalysisService{runs: make(map[string]services.RunSnapshot)}
}

func (f *fakeAnalysisService) Start(ctx context.Context, req operations.Request) (services.RunSnapshot, error) {
	if f.startErr != nil {
		return services.RunSnapshot{}, f.startErr
	}
	f.started = append(f.started, req)
	snap := services.RunSnapshot{
		RunID:     "run-1",
		Request:   req,
		State:     operations.StateIdle,
		StartedAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	f.runs[snap.RunID] = snap
	f.active = snap.RunID
	return snap, nil
}

func (f *fakeAnalysisService) Get(runID string) (services.RunSnapshot, error) {
	snap, ok := f.runs[runID]
	if !ok {
		return services.RunSnapshot{}, services.ErrRunNotFound
	}
	return snap, nil
}

func (f *fakeAnalysisService) List() []services.RunSnapshot {
	out := make([]services.RunSnapshot, 0, len(f.runs))
	for _, s := range f.runs {
		out = append(out, s)
	}
	return out
}

func (f *fakeAnalysisService) Active() (string, bool) {
	return f.active, f.active != ""
}

func (f *fakeAnalysisService) Cancel(runID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if _, ok := f.runs[runID]; !ok {
		return services.ErrRunNotFound
	}
	f.cancelled = append(f.cancelled, runID)
	return nil
}

func newAnalysisRouter(svc AnalysisServiceInterface) http.Handler {
	h := NewAnalysisHandler(svc, apierrors.NewErrorHandler(slog.Default(), false), slog.Default())
	r := chi.NewRouter()
	r.Mount("/api/analyses", h.Routes())
	return r
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartAnalysis(t *testing.T) {
	svc := newFakeService()
	router := newAnalysisRouter(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyses",
		strings.NewReader(`{"folder":" /data/stocks ","prompt":"分析近期走势","top_n":5,"formats":["md","csv"]}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/analyses/run-1", rec.Header().Get("Location"))

	var resp api.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "idle", resp.State)

	require.Len(t, svc.started, 1)
	assert.Equal(t, operations.Request{
		Folder:  "/data/stocks",
		Prompt:  "分析近期走势",
		TopN:    5,
		Formats: []string{"md", "csv"},
	}, svc.started[0])
}

func TestStartAnalysisErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		startErr   error
		active     string
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing input",
			body:       `{"prompt":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unknown format",
			body:       `{"folder":"/d","prompt":"x","formats":["docx"]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "top_n out of range",
			body:       `{"folder":"/d","prompt":"x","top_n":1000}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "blank prompt rejected by the run",
			body:       `{"folder":"/d","prompt":"   "}`,
			startErr:   operations.NewValidationError(operations.ErrEmptyPrompt),
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "run in progress",
			body:       `{"folder":"/d","prompt":"x"}`,
			startErr:   services.ErrRunInProgress,
			active:     "run-0",
			wantStatus: http.StatusConflict,
			wantType:   apierrors.TypeAnalysisRunning,
		},
		{
			name:       "service closed",
			body:       `{"folder":"/d","prompt":"x"}`,
			startErr:   services.ErrServiceClosed,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeServiceDown,
		},
		{
			name:       "unexpected failure",
			body:       `{"folder":"/d","prompt":"x"}`,
			startErr:   errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.startErr = tt.startErr
			svc.active = tt.active
			router := newAnalysisRouter(svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			if tt.active != "" {
				assert.Contains(t, rec.Body.String(), tt.active)
			}
		})
	}
}

func TestGetAnalysis(t *testing.T) {
	svc := newFakeService()
	finished := time.Date(2025, 1, 2, 9, 1, 0, 0, time.UTC)
	svc.runs["run-9"] = services.RunSnapshot{
		RunID:      "run-9",
		State:      operations.StateDone,
		Percent:    100,
		Message:    "Analysis complete: /out/report.md",
		FinishedAt: finished,
		Result: &operations.Result{
			State:  operations.StateDone,
			Report: &domain.AnalysisReport{FilePath: "/out/report.md", Narrative: "上涨"},
		},
		Logs: []operations.Event{
			{Kind: operations.EventLog, Level: slog.LevelWarn, Message: "no date", Time: finished},
		},
	}
	router := newAnalysisRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/run-9", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "done", resp.State)
	assert.Equal(t, 100, resp.Progress)
	require.NotNil(t, resp.FinishedAt)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "/out/report.md", resp.Report.FilePath)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "warn", resp.Logs[0].Level)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/run-9?logs=false", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Logs)
}

func TestGetAnalysisNotFound(t *testing.T) {
	router := newAnalysisRouter(newFakeService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeAnalysisNotFound, decodeProblem(t, rec)["type"])
}

func TestListAnalyses(t *testing.T) {
	svc := newFakeService()
	svc.runs["a"] = services.RunSnapshot{RunID: "a", State: operations.StateDone}
	svc.runs["b"] = services.RunSnapshot{RunID: "b", State: operations.StateFailed, Err: operations.NewNoFilesError("/d")}
	router := newAnalysisRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AnalysisListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	for _, a := range resp.Analyses {
		if a.RunID == "b" {
			assert.Equal(t, "validation", a.ErrorType)
			assert.Contains(t, a.Error, "no .xls or .xlsx files found")
		}
	}
}

func TestCancelAnalysis(t *testing.T) {
	svc := newFakeService()
	svc.runs["run-1"] = services.RunSnapshot{RunID: "run-1", State: operations.StateIngesting}
	router := newAnalysisRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analyses/run-1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"run-1"}, svc.cancelled)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analyses/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.cancelErr = services.ErrRunNotActive
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analyses/run-1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
