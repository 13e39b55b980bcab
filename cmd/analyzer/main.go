// Command analyzer runs one stock analysis from the command line and writes
// the report to the output directory.
//
//	analyzer -folder ./exports -prompt "分析近一个月涨幅最大的股票"
//	analyzer -prompt-file ask.txt -format md,xlsx a.xlsx b.xls
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stockdesk/internal/app"
	"stockdesk/internal/config"
	"stockdesk/internal/infrastructure"
	"stockdesk/internal/operations"
)

type options struct {
	folder     string
	files      []string
	prompt     string
	promptFile string
	top        int
	out        string
	formats    string
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.folder, "folder", "", "folder to scan recursively for .xls/.xlsx files")
	fs.StringVar(&opts.prompt, "prompt", "", "analysis request passed to the language model")
	fs.StringVar(&opts.promptFile, "prompt-file", "", "read the analysis request from a file")
	fs.IntVar(&opts.top, "top", 0, "number of ranked entities in the report (default from config)")
	fs.StringVar(&opts.out, "out", "", "output directory (default from config, then the desktop)")
	fs.StringVar(&opts.formats, "format", "", "comma separated report formats: md, docx, xlsx, csv")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.BoolVar(&opts.verbose, "v", false, "log pipeline details to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: analyzer [flags] [file ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.files = fs.Args()

	if opts.promptFile != "" {
		data, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file: %w", err)
		}
		opts.prompt = string(data)
	}
	return opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.out != "" {
		cfg.Paths.OutputDir = opts.out
	}
	if opts.top > 0 {
		cfg.Analysis.TopN = opts.top
	}
	if opts.formats != "" {
		cfg.Analysis.ReportFormats = splitList(opts.formats)
	}
	cfg.Logging.Level = "error"
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, "error: failed to load configuration:", err)
		return 1
	}

	logger := infrastructure.NewLogger(cfg.Logging, stderr)
	slog.SetDefault(logger)

	otelCfg := app.OTelConfigFrom(cfg)
	otelCfg.EnableMetrics = false
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "error: failed to initialize telemetry:", err)
		return 1
	}
	defer providers.Shutdown(context.Background())

	pipeline, err := app.BuildPipeline(cfg, logger, providers)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if pipeline.Narrator == nil {
		fmt.Fprintln(stdout, "Language model not configured; the report uses the local analysis.")
	}

	req := operations.Request{
		Folder:  opts.folder,
		Files:   opts.files,
		Prompt:  opts.prompt,
		Formats: cfg.Analysis.ReportFormats,
	}
	if err := pipeline.Orchestrator.Validate(req); err != nil {
		fmt.Fprintln(stderr, "error:", validationMessage(err))
		return 2
	}

	result, dropped, err := runWithProgress(ctx, pipeline.Orchestrator, req, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if dropped > 0 {
		fmt.Fprintf(stderr, "%d progress lines were not shown\n", dropped)
	}
	printSummary(stdout, result)

	if result.State != operations.StateDone {
		return 1
	}
	return 0
}

// runWithProgress runs the analysis while a second goroutine prints events.
// A failed write to stdout cancels the run and is returned.
func runWithProgress(ctx context.Context, orch *operations.Orchestrator, req operations.Request, stdout io.Writer) (*operations.Result, int64, error) {
	sink := operations.NewChannelSink(256)
	g, gctx := errgroup.WithContext(ctx)

	var result *operations.Result
	g.Go(func() error {
		defer sink.Close()
		result = orch.Run(gctx, req, sink)
		return nil
	})
	g.Go(func() error {
		var werr error
		for e := range sink.Events() {
			if werr != nil {
				continue
			}
			if werr = printEvent(stdout, e); werr != nil {
				werr = fmt.Errorf("failed to write progress: %w", werr)
			}
		}
		return werr
	})
	err := g.Wait()
	return result, sink.Dropped(), err
}

func printEvent(w io.Writer, e operations.Event) error {
	var err error
	switch e.Kind {
	case operations.EventProgress:
		_, err = fmt.Fprintf(w, "[%3d%%] %s\n", e.Percent, e.Message)
	case operations.EventLog:
		if e.Level >= slog.LevelWarn {
			_, err = fmt.Fprintf(w, "       %s: %s\n", strings.ToLower(e.Level.String()), e.Message)
		} else {
			_, err = fmt.Fprintf(w, "       %s\n", e.Message)
		}
	}
	return err
}

func printSummary(w io.Writer, r *operations.Result) {
	fmt.Fprintln(w)
	switch r.State {
	case operations.StateDone:
		fmt.Fprintf(w, "Report: %s\n", r.Report.FilePath)
		for _, extra := range r.Report.ExtraFiles {
			fmt.Fprintf(w, "        %s\n", extra)
		}
		if r.Report.Degraded {
			fmt.Fprintf(w, "Degraded: %s\n", r.Report.DegradedReason)
		}
	case operations.StateCancelled:
		fmt.Fprintln(w, "Analysis cancelled.")
	default:
		fmt.Fprintf(w, "Analysis failed: %v\n", r.Err)
	}
	c := r.Counts
	fmt.Fprintf(w, "Files: %d (aggregate %d, entity %d), read %d, skipped %d; entities %d, returns %d; %s\n",
		c.Files, c.AggregateFiles, c.EntityFiles, c.Ingested, c.Skipped, c.Entities, c.Returns,
		r.Duration.Round(time.Millisecond))
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", s.Path, s.Reason)
	}
}

func validationMessage(err error) string {
	var opErr *operations.OperationError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
