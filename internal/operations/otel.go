package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockdesk/internal/infrastructure"
)

// TracerName names the tracer used for run spans
const TracerName = "stockdesk.analysis"

// runTracer records spans and stage metrics for a run
type runTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

func newRunTracer(tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *runTracer {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &runTracer{tracer: tracer, metrics: metrics}
}

// startRun opens the root span of a run
func (t *runTracer) startRun(ctx context.Context, runID string, req Request) (context.Context, trace.Span) {
	t.metrics.RunStarted(ctx)
	return t.tracer.Start(ctx, "analysis.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.folder", req.Folder),
			attribute.Int("run.files", len(req.Files)),
			attribute.Int("run.top_n", req.TopN),
		),
	)
}

// finishRun closes the root span with the final state
func (t *runTracer) finishRun(ctx context.Context, span trace.Span, state State, err error, d time.Duration) {
	span.SetAttributes(attribute.String("run.state", state.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	t.metrics.RunFinished(ctx, state.String(), d)
}

// stageSpan tracks one state of a run. end must be called exactly once.
type stageSpan struct {
	span    trace.Span
	state   State
	start   time.Time
	metrics *infrastructure.PipelineMetrics
}

func (t *runTracer) startStage(ctx context.Context, state State) (context.Context, *stageSpan) {
	ctx, span := t.tracer.Start(ctx, "analysis."+state.String(),
		trace.WithAttributes(attribute.String("stage", state.String())))
	return ctx, &stageSpan{span: span, state: state, start: time.Now(), metrics: t.metrics}
}

func (s *stageSpan) end(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
	s.metrics.RecordStage(ctx, s.state.String(), time.Since(s.start))
}
