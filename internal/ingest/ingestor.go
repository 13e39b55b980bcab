package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"stockdesk/internal/dataprocessing"
	"stockdesk/internal/infrastructure"
	"stockdesk/pkg/contracts/domain"
)

// Reader reads one file under one strategy
type Reader interface {
	Read(ctx context.Context, path string, s Strategy) (*Grid, error)
}

// ReaderFunc adapts a function to Reader
type ReaderFunc func(ctx context.Context, path string, s Strategy) (*Grid, error)

// Read implements Reader
func (f ReaderFunc) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	return f(ctx, path, s)
}

// NameRepairer turns raw header cells into unique, readable column names
type NameRepairer interface {
	Repair(names []any) []string
}

// Ingestor reads spreadsheet files by trying strategies in order
type Ingestor struct {
	readers    map[Engine]Reader
	strategies []Strategy
	repairer   NameRepairer
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
}

// Option configures an Ingestor
type Option func(*Ingestor)

// WithReader registers or replaces the reader for an engine. A nil reader
// disables the engine.
func WithReader(engine Engine, r Reader) Option {
	return func(i *Ingestor) {
		if r == nil {
			delete(i.readers, engine)
			return
		}
		i.readers[engine] = r
	}
}

// WithConverter enables the external conversion engine
func WithConverter(c *Converter) Option {
	return func(i *Ingestor) {
		if c != nil {
			i.readers[EngineConvert] = c
		}
	}
}

// WithStrategies replaces the extension-based default order
func WithStrategies(strategies []Strategy) Option {
	return func(i *Ingestor) {
		i.strategies = strategies
	}
}

// WithRepairer sets the column name repairer
func WithRepairer(r NameRepairer) Option {
	return func(i *Ingestor) {
		i.repairer = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithMetrics records the winning strategy per file
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(i *Ingestor) {
		i.metrics = m
	}
}

// New creates an Ingestor with the library engines registered. The convert
// engine is only available through WithConverter.
func New(opts ...Option) *Ingestor {
	i := &Ingestor{
		readers: map[Engine]Reader{
			EngineExcelize:  ExcelizeReader{},
			EngineXLSX:      XLSXReader{},
			EngineXLS:       XLSReader{},
			EngineHTML:      HTMLReader{},
			EngineDelimited: DelimitedReader{},
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.repairer == nil {
		i.repairer = dataprocessing.NewColumnRepairer(i.logger)
	}
	return i
}

// Ingest reads path. It never returns an error: failed attempts are recorded
// in the result, and a file nothing could read has Strategy "unreadable".
func (i *Ingestor) Ingest(ctx context.Context, path string) domain.IngestResult {
	start := time.Now()
	result := domain.IngestResult{SourcePath: path, Strategy: domain.StrategyUnreadable}

	strategies := i.strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies(path)
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			result.Attempts = append(result.Attempts, domain.AttemptFailure{Strategy: s.Name, Reason: err.Error()})
			break
		}

		reader, ok := i.readers[s.Engine]
		if !ok {
			continue
		}

		grid, err := attempt(ctx, reader, path, s)
		if err == nil {
			table := i.toTable(grid)
			if table.Empty() || table.AllMissing() {
				err = fmt.Errorf("table is empty")
			} else {
				result.Table = table
				result.Strategy = s.Name
				break
			}
		}

		result.Attempts = append(result.Attempts, domain.AttemptFailure{Strategy: s.Name, Reason: err.Error()})
		i.logger.DebugContext(ctx, "Read attempt failed",
			slog.String("path", path),
			slog.String("strategy", s.Name),
			slog.String("error", err.Error()))
	}

	result.Duration = time.Since(start)
	i.metrics.RecordIngest(ctx, result.Strategy)

	if result.OK() {
		rows, cols := result.Table.Shape()
		i.logger.InfoContext(ctx, "File ingested",
			slog.String("path", path),
			slog.String("strategy", result.Strategy),
			slog.Int("rows", rows),
			slog.Int("columns", cols),
			slog.Int("failed_attempts", len(result.Attempts)))
	} else {
		i.logger.WarnContext(ctx, "File unreadable",
			slog.String("path", path),
			slog.Int("attempts", len(result.Attempts)))
	}

	return result
}

// attempt runs one reader, converting panics from third-party code into errors
func attempt(ctx context.Context, r Reader, path string, s Strategy) (g *Grid, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			g = nil
			err = fmt.Errorf("reader panic: %v", rec)
		}
	}()
	g, err = r.Read(ctx, path, s)
	if err == nil && g == nil {
		err = fmt.Errorf("reader returned no data")
	}
	return g, err
}

// toTable repairs the header and pads rows to a common width. Header cells
// that are not valid UTF-8 are handed to the repairer as raw bytes.
func (i *Ingestor) toTable(g *Grid) *domain.RawTable {
	width := g.Width()
	names := make([]any, width)
	for c := 0; c < width; c++ {
		if c >= len(g.Header) {
			continue
		}
		if h := g.Header[c]; utf8.ValidString(h) {
			names[c] = h
		} else {
			names[c] = []byte(h)
		}
	}
	return domain.NewRawTable(i.repairer.Repair(names), g.Rows)
}
