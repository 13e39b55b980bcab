package infrastructure

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the analysis pipeline instruments. A nil
// *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	FilesIngested      metric.Int64Counter
	RunsTotal          metric.Int64Counter
	RunDuration        metric.Float64Histogram
	StageDuration      metric.Float64Histogram
	NarrativesTotal    metric.Int64Counter
	ActiveRuns         metric.Int64UpDownCounter
	HTTPRequestsTotal  metric.Int64Counter
	HTTPRequestSeconds metric.Float64Histogram
}

// NewPipelineMetrics creates the instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	filesIngested, err := meter.Int64Counter(
		"stockdesk_files_ingested_total",
		metric.WithDescription("Spreadsheet files processed, by winning strategy"),
	)
	if err != nil {
		return nil, err
	}

	runsTotal, err := meter.Int64Counter(
		"stockdesk_runs_total",
		metric.WithDescription("Analysis runs by terminal state"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"stockdesk_run_duration_seconds",
		metric.WithDescription("Analysis run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"stockdesk_stage_duration_seconds",
		metric.WithDescription("Time spent in each pipeline state"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	narratives, err := meter.Int64Counter(
		"stockdesk_narratives_total",
		metric.WithDescription("Narratives produced, by source (llm or fallback)"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"stockdesk_active_runs",
		metric.WithDescription("Number of running analyses"),
	)
	if err != nil {
		return nil, err
	}

	httpRequests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpSeconds, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		FilesIngested:      filesIngested,
		RunsTotal:          runsTotal,
		RunDuration:        runDuration,
		StageDuration:      stageDuration,
		NarrativesTotal:    narratives,
		ActiveRuns:         activeRuns,
		HTTPRequestsTotal:  httpRequests,
		HTTPRequestSeconds: httpSeconds,
	}, nil
}

// RecordIngest counts one ingested file
func (m *PipelineMetrics) RecordIngest(ctx context.Context, strategy string) {
	if m == nil {
		return
	}
	m.FilesIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordStage records the time spent in a pipeline state
func (m *PipelineMetrics) RecordStage(ctx context.Context, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("state", state)))
}

// RecordNarrative counts a narrative by source
func (m *PipelineMetrics) RecordNarrative(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.NarrativesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RunStarted increments the active run gauge
func (m *PipelineMetrics) RunStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveRuns.Add(ctx, 1)
}

// RunFinished records a terminal state and run duration
func (m *PipelineMetrics) RunFinished(ctx context.Context, state string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("state", state))
	m.ActiveRuns.Add(ctx, -1)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordHTTPRequest records one served request
func (m *PipelineMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestSeconds.Record(ctx, d.Seconds(), attrs)
}
