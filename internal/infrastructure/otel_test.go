package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel_MetricsEndpoint(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()
	providers.Metrics.RecordIngest(ctx, "excelize/header")
	providers.Metrics.RecordNarrative(ctx, "fallback")
	providers.Metrics.RunStarted(ctx)
	providers.Metrics.RunFinished(ctx, "done", 2*time.Second)

	rec := httptest.NewRecorder()
	providers.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stockdesk_files_ingested_total")
	assert.Contains(t, body, `strategy="excelize/header"`)
	assert.Contains(t, body, "stockdesk_narratives_total")
	assert.Contains(t, body, "stockdesk_run_duration_seconds")
}

func TestInitializeOTel_Tracing(t *testing.T) {
	var spans bytes.Buffer
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = false
	cfg.TraceWriter = &spans

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "unit")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, spans.String(), `"Name":"unit"`)

	rec := httptest.NewRecorder()
	providers.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled")
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordIngest(ctx, "html")
		m.RecordStage(ctx, "scanning", time.Second)
		m.RunStarted(ctx)
		m.RunFinished(ctx, "failed", time.Second)
		m.RecordHTTPRequest(ctx, "GET", "/api/health", 200, time.Millisecond)
	})
}
