package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockdesk/internal/classify"
	"stockdesk/internal/config"
	"stockdesk/internal/dataprocessing"
	"stockdesk/internal/exporter"
	"stockdesk/internal/files"
	"stockdesk/internal/infrastructure"
	"stockdesk/internal/ingest"
	"stockdesk/internal/narrative"
	"stockdesk/pkg/contracts/domain"
)

// Request describes one analysis run. Folder wins over Files when both are set.
type Request struct {
	RunID   string   `json:"run_id,omitempty"`
	Folder  string   `json:"folder,omitempty"`
	Files   []string `json:"files,omitempty"`
	Prompt  string   `json:"prompt"`
	TopN    int      `json:"top_n,omitempty"`
	Formats []string `json:"formats,omitempty"`
}

// Counts summarises what a run processed
type Counts struct {
	Files          int `json:"files"`
	AggregateFiles int `json:"aggregate_files"`
	EntityFiles    int `json:"entity_files"`
	Ingested       int `json:"ingested"`
	Skipped        int `json:"skipped"`
	RowsDropped    int `json:"rows_dropped"`
	Entities       int `json:"entities"`
	Returns        int `json:"returns"`
}

// SkippedFile is an input that produced no usable table
type SkippedFile struct {
	Path     string                  `json:"path"`
	Reason   string                  `json:"reason"`
	Attempts []domain.AttemptFailure `json:"attempts,omitempty"`
}

// Result is the outcome of a run. State is always terminal.
type Result struct {
	RunID    string                 `json:"run_id"`
	State    State                  `json:"state"`
	Report   *domain.AnalysisReport `json:"report,omitempty"`
	Counts   Counts                 `json:"counts"`
	Skipped  []SkippedFile          `json:"skipped,omitempty"`
	Err      error                  `json:"-"`
	Duration time.Duration          `json:"duration"`
}

// Options tunes the pipeline
type Options struct {
	TopN             int
	ContextLimit     int
	CleanThreshold   float64
	NarrativeTimeout time.Duration
	RequireAPIKey    bool
	Formats          []string
}

// OptionsFromConfig maps application configuration onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopN:             cfg.Analysis.TopN,
		ContextLimit:     cfg.Analysis.ContextLimit,
		CleanThreshold:   cfg.Analysis.CleanThreshold,
		NarrativeTimeout: cfg.LLM.Timeout,
		RequireAPIKey:    cfg.LLM.RequireAPIKey,
		Formats:          cfg.Analysis.ReportFormats,
	}
}

// Dependencies are the collaborators of an Orchestrator. Narrator may be nil,
// in which case the local narrative is always used. Nil Ingestor, Classifier
// and Discovery get defaults; Writer is required.
type Dependencies struct {
	Discovery  *files.Discovery
	Ingestor   FileIngestor
	Classifier FileClassifier
	Narrator   narrative.Narrator
	Writer     ReportWriter
	Logger     *slog.Logger
	Metrics    *infrastructure.PipelineMetrics
	Tracer     trace.Tracer
	Clock      func() time.Time
}

// Orchestrator sequences an analysis run:
// scanning, ingesting, cleaning, computing returns, narrating, composing.
// Files are processed sequentially and a run is not safe to share between
// goroutines; use one Run call at a time per Orchestrator.
type Orchestrator struct {
	discovery  *files.Discovery
	ingestor   FileIngestor
	classifier FileClassifier
	cleaner    *dataprocessing.Cleaner
	grouper    *dataprocessing.Grouper
	calculator *dataprocessing.ReturnCalculator
	narrator   narrative.Narrator
	writer     ReportWriter
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
	tracer     *runTracer
	now        func() time.Time
	opts       Options
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "orchestrator")

	if opts.TopN <= 0 {
		opts.TopN = dataprocessing.DefaultTopN
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = narrative.DefaultContextLimit
	}
	if opts.NarrativeTimeout <= 0 {
		opts.NarrativeTimeout = config.DefaultLLMTimeout
	}

	o := &Orchestrator{
		discovery:  deps.Discovery,
		ingestor:   deps.Ingestor,
		classifier: deps.Classifier,
		cleaner:    dataprocessing.NewCleaner(opts.CleanThreshold, logger),
		grouper:    dataprocessing.NewGrouper(logger),
		calculator: dataprocessing.NewReturnCalculator(logger),
		narrator:   deps.Narrator,
		writer:     deps.Writer,
		logger:     logger,
		metrics:    deps.Metrics,
		tracer:     newRunTracer(deps.Tracer, deps.Metrics),
		now:        deps.Clock,
		opts:       opts,
	}
	if o.discovery == nil {
		o.discovery = files.NewDiscovery("")
	}
	if o.ingestor == nil {
		o.ingestor = ingest.New(ingest.WithLogger(logger), ingest.WithMetrics(deps.Metrics))
	}
	if o.classifier == nil {
		o.classifier = classify.New(classify.WithLogger(logger))
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Run executes one analysis. It never panics on bad input and always returns
// a Result in a terminal state. Validation problems fail the run before any
// file is touched.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) *Result {
	if sink == nil {
		sink = DiscardSink
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), req.RunID)

	start := time.Now()
	ctx, span := o.tracer.startRun(ctx, req.RunID, req)

	r := &run{
		o:      o,
		ctx:    ctx,
		sink:   sink,
		req:    req,
		logger: o.logger.With(slog.String("run_id", req.RunID)),
		result: &Result{RunID: req.RunID, State: StateIdle},
		tables: make(map[domain.FileCategory][]domain.DatedTable),
	}
	r.execute()

	r.result.Duration = time.Since(start)
	o.tracer.finishRun(ctx, span, r.result.State, r.result.Err, r.result.Duration)
	return r.result
}

// run holds the mutable state of one Run call
type run struct {
	o      *Orchestrator
	ctx    context.Context
	sink   Sink
	req    Request
	logger *slog.Logger
	result *Result

	stage    *stageSpan
	stageCtx context.Context
	percent  int

	location    string
	classified  []domain.ClassifiedFile
	fileCounts  map[domain.FileCategory]int
	skipCounts  map[domain.FileCategory]int
	tables      map[domain.FileCategory][]domain.DatedTable
	diagnostics []string
}

func (r *run) execute() {
	steps := []func() error{
		r.validate,
		r.scan,
		r.ingest,
		r.clean,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			r.finish(err)
			return
		}
	}

	summary, top, err := r.computeReturns()
	if err != nil {
		r.finish(err)
		return
	}

	text, source, err := r.narrate(summary, top)
	if err != nil {
		r.finish(err)
		return
	}

	if err := r.compose(summary, top, text, source); err != nil {
		r.finish(err)
		return
	}

	r.enter(StateDone, fmt.Sprintf("Analysis complete: %s", r.result.Report.FilePath))
	r.result.State = StateDone
}

func (r *run) validate() error {
	return r.o.Validate(r.req)
}

// Validate reports the problems that would fail req before any file is read
func (o *Orchestrator) Validate(req Request) error {
	if req.Folder == "" && len(req.Files) == 0 {
		return NewValidationError(ErrNoInput)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return NewValidationError(ErrEmptyPrompt)
	}
	if o.opts.RequireAPIKey && o.narrator == nil {
		return NewValidationError(ErrMissingAPIKey)
	}
	if o.writer == nil {
		return NewFatalError(StateIdle, "no report writer configured", errors.New("nil writer"))
	}
	return nil
}

func (r *run) scan() error {
	var (
		found []files.FileInfo
		err   error
	)
	if r.req.Folder != "" {
		r.location = r.req.Folder
		r.enter(StateScanning, fmt.Sprintf("Scanning %s", r.req.Folder))
		found, err = r.o.discovery.FindSpreadsheets(r.req.Folder)
		if err != nil {
			return &OperationError{Type: ErrorTypeValidation, Stage: StateScanning, Message: "cannot read input folder", Cause: err}
		}
	} else {
		r.location = fmt.Sprintf("%d selected files", len(r.req.Files))
		r.enter(StateScanning, fmt.Sprintf("Checking %d selected files", len(r.req.Files)))
		var rejected []string
		found, rejected = r.o.discovery.StatFiles(r.req.Files)
		for _, p := range rejected {
			r.log(slog.LevelWarn, fmt.Sprintf("Ignored %s: not an existing .xls or .xlsx file", p))
		}
	}

	if len(found) == 0 {
		return NewNoFilesError(r.location)
	}

	r.fileCounts = make(map[domain.FileCategory]int)
	r.skipCounts = make(map[domain.FileCategory]int)
	for _, f := range found {
		cf := r.o.classifier.Classify(f.Path)
		r.classified = append(r.classified, cf)
		r.fileCounts[cf.Category]++
		if !cf.HasDate() {
			r.log(slog.LevelWarn, fmt.Sprintf("No date in name or path of %s; using %s from %s",
				f.Name, cf.Date.Format("2006-01-02"), cf.DateSource))
		}
	}

	c := &r.result.Counts
	c.Files = len(found)
	c.AggregateFiles = r.fileCounts[domain.CategoryAggregate]
	c.EntityFiles = r.fileCounts[domain.CategoryEntity]
	r.log(slog.LevelInfo, fmt.Sprintf("Found %d files: %d aggregate, %d entity",
		c.Files, c.AggregateFiles, c.EntityFiles))
	return nil
}

func (r *run) ingest() error {
	total := len(r.classified)
	r.enter(StateIngesting, fmt.Sprintf("Reading %d files", total))

	for i, cf := range r.classified {
		if err := r.ctx.Err(); err != nil {
			return NewCancellationError(StateIngesting, err)
		}

		name := filepath.Base(cf.Path)
		res := r.o.ingestor.Ingest(r.stageCtx, cf.Path)
		if !res.OK() {
			if err := r.ctx.Err(); err != nil {
				return NewCancellationError(StateIngesting, err)
			}
			r.skip(cf, fmt.Sprintf("unreadable after %d attempts", len(res.Attempts)), res.Attempts)
			r.diagnostics = append(r.diagnostics, fmt.Sprintf("无法读取的文件: %s", name))
			continue
		}

		rows, cols := res.Table.Shape()
		r.log(slog.LevelInfo, fmt.Sprintf("[%d/%d] Read %s with %s: %d rows x %d columns",
			i+1, total, name, res.Strategy, rows, cols))
		r.tables[cf.Category] = append(r.tables[cf.Category], domain.DatedTable{File: cf, Table: res.Table})
		r.result.Counts.Ingested++
	}

	if err := r.ctx.Err(); err != nil {
		return NewCancellationError(StateIngesting, err)
	}
	r.stage.span.SetAttributes(
		attribute.Int("files.ingested", r.result.Counts.Ingested),
		attribute.Int("files.skipped", r.result.Counts.Skipped))
	return nil
}

func (r *run) skip(cf domain.ClassifiedFile, reason string, attempts []domain.AttemptFailure) {
	r.result.Skipped = append(r.result.Skipped, SkippedFile{Path: cf.Path, Reason: reason, Attempts: attempts})
	r.result.Counts.Skipped++
	r.skipCounts[cf.Category]++
	r.log(slog.LevelWarn, fmt.Sprintf("Skipped %s: %s", filepath.Base(cf.Path), reason))
}

func (r *run) clean() error {
	r.enter(StateCleaning, "Removing rows with too many missing values")

	for _, category := range []domain.FileCategory{domain.CategoryAggregate, domain.CategoryEntity} {
		kept := r.tables[category][:0]
		for _, dt := range r.tables[category] {
			cleaned, removed := r.o.cleaner.Clean(dt.File.Path, dt.Table)
			r.result.Counts.RowsDropped += removed
			if cleaned.Empty() {
				r.skip(dt.File, "no rows left after cleaning", nil)
				r.diagnostics = append(r.diagnostics, fmt.Sprintf("清洗后无有效数据: %s", filepath.Base(dt.File.Path)))
				continue
			}
			dt.Table = cleaned
			kept = append(kept, dt)
		}
		r.tables[category] = kept
	}

	if n := r.result.Counts.RowsDropped; n > 0 {
		r.log(slog.LevelInfo, fmt.Sprintf("Dropped %d sparse rows", n))
	}
	if err := r.ctx.Err(); err != nil {
		return NewCancellationError(StateCleaning, err)
	}
	return nil
}

func (r *run) computeReturns() (domain.SummaryStats, []domain.ReturnRecord, error) {
	r.enter(StateComputingReturns, "Computing returns per stock")

	entityTables := r.tables[domain.CategoryEntity]
	series, noID := r.o.grouper.GroupByEntity(entityTables)
	for _, p := range noID {
		r.log(slog.LevelWarn, fmt.Sprintf("No stock code column in %s", filepath.Base(p)))
		r.diagnostics = append(r.diagnostics, fmt.Sprintf("未找到股票代码列: %s", filepath.Base(p)))
	}

	records := r.o.calculator.ComputeReturns(series)
	top := dataprocessing.Rank(records, r.topN())

	summary := domain.SummaryStats{
		Aggregate: dataprocessing.SummarizeCategory(dataprocessing.CategoryInput{
			Files:   r.fileCounts[domain.CategoryAggregate],
			Skipped: r.skipCounts[domain.CategoryAggregate],
			Tables:  r.tables[domain.CategoryAggregate],
		}),
		Entity: dataprocessing.SummarizeCategory(dataprocessing.CategoryInput{
			Files:   r.fileCounts[domain.CategoryEntity],
			Skipped: r.skipCounts[domain.CategoryEntity],
			Tables:  entityTables,
		}),
		Entities:     len(series),
		ReturnsCount: len(records),
		RowsDropped:  r.result.Counts.RowsDropped,
	}
	for _, rec := range records {
		if rec.Fallback {
			summary.FallbackPrice = true
			break
		}
	}

	r.result.Counts.Entities = len(series)
	r.result.Counts.Returns = len(records)

	if summary.FallbackPrice {
		r.log(slog.LevelWarn, "No closing price column found; returns use the first numeric column and may be meaningless")
	}
	r.log(slog.LevelInfo, fmt.Sprintf("Computed returns for %d of %d stocks", len(records), len(series)))

	if err := r.ctx.Err(); err != nil {
		return summary, nil, NewCancellationError(StateComputingReturns, err)
	}
	return summary, top, nil
}

// narrate returns the narrative text. Remote failures fall back to the local
// narrative; only cancellation of the run is an error.
func (r *run) narrate(summary domain.SummaryStats, top []domain.ReturnRecord) (string, domain.NarrativeSource, error) {
	if len(top) == 0 {
		r.log(slog.LevelWarn, "No returns could be computed; composing a basic report")
		r.o.metrics.RecordNarrative(r.ctx, string(domain.NarrativeFromFallback))
		return narrative.Fallback(summary, nil), domain.NarrativeFromFallback, nil
	}

	r.enter(StateNarrating, "Generating analysis")

	if r.o.narrator == nil {
		r.log(slog.LevelInfo, "No language model configured; using local analysis")
		r.o.metrics.RecordNarrative(r.ctx, string(domain.NarrativeFromFallback))
		return narrative.Fallback(summary, top), domain.NarrativeFromFallback, nil
	}

	req := narrative.BuildRequest(r.req.Prompt, summary, top, r.o.opts.ContextLimit)
	callCtx, cancel := context.WithTimeout(r.stageCtx, r.o.opts.NarrativeTimeout)
	defer cancel()

	text, err := r.o.narrator.Narrate(callCtx, req)
	if err != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			return "", "", NewCancellationError(StateNarrating, ctxErr)
		}
		narrErr := &OperationError{Type: ErrorTypeNarration, Stage: StateNarrating, Message: "language model call failed", Cause: err}
		infrastructure.RecordError(r.stageCtx, narrErr)
		r.log(slog.LevelWarn, fmt.Sprintf("Language model unavailable (%v); using local analysis", err))
		r.o.metrics.RecordNarrative(r.ctx, string(domain.NarrativeFromFallback))
		return narrative.Fallback(summary, top), domain.NarrativeFromFallback, nil
	}

	r.log(slog.LevelInfo, fmt.Sprintf("Received %d characters of analysis", len([]rune(text))))
	r.o.metrics.RecordNarrative(r.ctx, string(domain.NarrativeFromLLM))
	return text, domain.NarrativeFromLLM, nil
}

func (r *run) compose(summary domain.SummaryStats, top []domain.ReturnRecord, text string, source domain.NarrativeSource) error {
	r.enter(StateComposing, "Writing report")

	report := exporter.Compose(exporter.ComposeInput{
		GeneratedAt:     r.o.now(),
		Prompt:          r.req.Prompt,
		Source:          r.location,
		Summary:         summary,
		Narrative:       text,
		NarrativeSource: source,
		Top:             top,
		Diagnostics:     r.diagnostics,
	})
	r.result.Report = report

	if err := r.ctx.Err(); err != nil {
		return NewCancellationError(StateComposing, err)
	}

	formats := r.req.Formats
	if len(formats) == 0 {
		formats = r.o.opts.Formats
	}
	if err := r.o.writer.Export(report, formats); err != nil {
		return NewOutputError(err)
	}

	if report.Degraded {
		r.log(slog.LevelWarn, fmt.Sprintf("Basic report written: %s", report.DegradedReason))
	}
	for _, p := range report.ExtraFiles {
		r.log(slog.LevelInfo, fmt.Sprintf("Also wrote %s", p))
	}
	return nil
}

func (r *run) topN() int {
	if r.req.TopN > 0 {
		return r.req.TopN
	}
	return r.o.opts.TopN
}

// enter moves the run to state, closing the previous stage span and
// emitting a progress event.
func (r *run) enter(state State, message string) {
	r.stage.end(r.ctx, nil)
	r.stage = nil
	r.stageCtx = r.ctx
	if !state.IsTerminal() {
		r.stageCtx, r.stage = r.o.tracer.startStage(r.ctx, state)
	}

	r.result.State = state
	if p := state.Percent(); p >= 0 {
		r.percent = p
	}
	r.sink.Emit(Event{
		Kind:    EventProgress,
		RunID:   r.req.RunID,
		State:   state,
		Percent: r.percent,
		Message: message,
		Time:    time.Now(),
	})
	r.logger.InfoContext(r.ctx, "Analysis state changed",
		slog.String("state", state.String()),
		slog.Int("percent", r.percent))
}

// finish ends the run in Failed or Cancelled
func (r *run) finish(err error) {
	state := StateFailed
	if GetErrorType(err) == ErrorTypeCancellation {
		state = StateCancelled
	}
	r.stage.end(r.ctx, err)
	r.stage = nil

	r.result.State = state
	r.result.Err = err
	r.sink.Emit(Event{
		Kind:    EventProgress,
		RunID:   r.req.RunID,
		State:   state,
		Percent: r.percent,
		Message: err.Error(),
		Time:    time.Now(),
	})
	infrastructure.WithError(r.logger, err).ErrorContext(r.ctx, "Analysis ended without a report",
		slog.String("state", state.String()),
		slog.String("error_type", string(GetErrorType(err))))
}

// log emits a free-text event and mirrors it to the structured logger
func (r *run) log(level slog.Level, message string) {
	r.sink.Emit(Event{
		Kind:    EventLog,
		RunID:   r.req.RunID,
		State:   r.result.State,
		Percent: r.percent,
		Message: message,
		Level:   level,
		Time:    time.Now(),
	})
	r.logger.Log(r.ctx, level, message)
}
