package app

import (
	"errors"
	"fmt"
	"log/slog"

	"stockdesk/internal/classify"
	"stockdesk/internal/config"
	"stockdesk/internal/exporter"
	"stockdesk/internal/files"
	"stockdesk/internal/infrastructure"
	"stockdesk/internal/ingest"
	"stockdesk/internal/narrative"
	"stockdesk/internal/operations"
)

// Pipeline holds an orchestrator and the collaborators it was built from
type Pipeline struct {
	Orchestrator *operations.Orchestrator
	Ingestor     *ingest.Ingestor
	Classifier   *classify.Classifier
	// Narrator is nil when no language model is configured
	Narrator  narrative.Narrator
	Exporter  *exporter.ReportExporter
	OutputDir string
}

// BuildPipeline assembles the analysis pipeline from configuration.
// providers may be nil.
func BuildPipeline(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Pipeline, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	outputDir, err := config.ResolveOutputDir(cfg.Paths.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	narrator, err := narrative.New(cfg.LLM, logger)
	if err != nil && !errors.Is(err, narrative.ErrNoNarrator) {
		return nil, fmt.Errorf("failed to create narrator: %w", err)
	}

	ingestor, err := NewIngestor(cfg, logger, providers)
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(cfg, logger)
	exp := exporter.NewReportExporter(files.NewManager(outputDir, logger), logger)

	deps := operations.Dependencies{
		Ingestor:   ingestor,
		Classifier: classifier,
		Narrator:   narrator,
		Writer:     exp,
		Logger:     logger,
	}
	if providers != nil {
		deps.Metrics = providers.Metrics
		deps.Tracer = providers.Tracer
	}

	logger.Info("Pipeline ready",
		slog.String("output_dir", outputDir),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.Bool("llm_enabled", narrator != nil))

	return &Pipeline{
		Orchestrator: operations.NewOrchestrator(deps, operations.OptionsFromConfig(cfg)),
		Ingestor:     ingestor,
		Classifier:   classifier,
		Narrator:     narrator,
		Exporter:     exp,
		OutputDir:    outputDir,
	}, nil
}

// NewIngestor builds the file ingestor with the configured strategy order
// and, when enabled and installed, the external converter.
func NewIngestor(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*ingest.Ingestor, error) {
	opts := []ingest.Option{ingest.WithLogger(logger)}
	if providers != nil {
		opts = append(opts, ingest.WithMetrics(providers.Metrics))
	}

	if len(cfg.Analysis.Strategies) > 0 {
		strategies, err := ingest.StrategiesByName(cfg.Analysis.Strategies)
		if err != nil {
			return nil, fmt.Errorf("invalid ingestion strategies: %w", err)
		}
		opts = append(opts, ingest.WithStrategies(strategies))
	}

	if cfg.Converter.Enabled {
		// A missing binary is logged by NewConverter and leaves the strategy inert
		if conv := ingest.NewConverter(cfg.Converter.Binary, cfg.Converter.Timeout, logger); conv != nil {
			opts = append(opts, ingest.WithConverter(conv))
		}
	}

	return ingest.New(opts...), nil
}

// NewClassifier builds the file classifier with the configured aggregate marker
func NewClassifier(cfg *config.Config, logger *slog.Logger) *classify.Classifier {
	return classify.New(
		classify.WithMarker(cfg.Analysis.AggregateMarker),
		classify.WithLogger(logger),
	)
}

// OTelConfigFrom maps application configuration onto telemetry settings
func OTelConfigFrom(cfg *config.Config) infrastructure.OTelConfig {
	oc := infrastructure.DefaultOTelConfig()
	oc.EnableTracing = cfg.Tracing.Enabled
	return oc
}
