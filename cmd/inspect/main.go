// Command inspect reads spreadsheets the way an analysis run does and prints
// what it found: the strategy that succeeded, the table shape, the repaired
// column names, the classification and the first rows.
//
//	inspect 股票A_20250101.xls
//	inspect -rows 10 -csv ./out ./exports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"stockdesk/internal/app"
	"stockdesk/internal/config"
	"stockdesk/internal/dataprocessing"
	"stockdesk/internal/exporter"
	"stockdesk/internal/files"
	"stockdesk/internal/infrastructure"
	"stockdesk/pkg/contracts/domain"
)

type options struct {
	paths      []string
	rows       int
	csvDir     string
	clean      bool
	configPath string
	verbose    bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.rows, "rows", 5, "number of rows to preview")
	fs.StringVar(&opts.csvDir, "csv", "", "export each table as CSV into this directory")
	fs.BoolVar(&opts.clean, "clean", false, "drop sparse rows before previewing and exporting")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.BoolVar(&opts.verbose, "v", false, "log ingestion details to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: inspect [flags] file-or-folder ...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.paths = fs.Args()
	if len(opts.paths) == 0 {
		fs.Usage()
		return nil, errors.New("no files given")
	}
	return opts, nil
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

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "error: failed to load configuration:", err)
		return 1
	}
	cfg.Logging.Level = "error"
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	logger := infrastructure.NewLogger(cfg.Logging, stderr)

	ingestor, err := app.NewIngestor(cfg, logger, nil)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	classifier := app.NewClassifier(cfg, logger)
	cleaner := dataprocessing.NewCleaner(cfg.Analysis.CleanThreshold, logger)

	var csvWriter *exporter.CSVWriter
	if opts.csvDir != "" {
		csvWriter = exporter.NewCSVWriter(files.NewManager(opts.csvDir, logger), logger)
	}

	paths, missing := expandPaths(opts.paths)
	for _, m := range missing {
		fmt.Fprintf(stderr, "skipping %s: not a spreadsheet or folder\n", m)
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "error: no .xls or .xlsx files found")
		return 1
	}

	failed := 0
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		cf := classifier.Classify(path)
		res := ingestor.Ingest(ctx, path)

		fmt.Fprintf(stdout, "== %s\n", path)
		fmt.Fprintf(stdout, "category: %s, date: %s (%s)\n",
			cf.Category, cf.Date.Format("2006-01-02"), cf.DateSource)

		if !res.OK() {
			failed++
			fmt.Fprintln(stdout, "unreadable; attempts:")
			for _, a := range res.Attempts {
				fmt.Fprintf(stdout, "  %-20s %s\n", a.Strategy, a.Reason)
			}
			continue
		}

		table := res.Table
		if opts.clean {
			var dropped int
			table, dropped = cleaner.Clean(filepath.Base(path), table)
			fmt.Fprintf(stdout, "cleaned: %d rows dropped\n", dropped)
		}

		rows, cols := table.Shape()
		fmt.Fprintf(stdout, "strategy: %s, %d rows x %d columns, %s\n",
			res.Strategy, rows, cols, res.Duration.Round(time.Millisecond))
		fmt.Fprintf(stdout, "columns: %s\n", strings.Join(table.Columns, " | "))
		if idx := dataprocessing.FindIdentifierColumn(table.Columns); idx >= 0 {
			fmt.Fprintf(stdout, "identifier column: %s\n", table.Columns[idx])
		}
		if price := dataprocessing.FindPriceColumn(table.Columns); price != "" {
			fmt.Fprintf(stdout, "price column: %s\n", price)
		}
		printPreview(stdout, table.Head(opts.rows))

		if csvWriter != nil {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".csv"
			if err := csvWriter.WriteTable(name, table); err != nil {
				fmt.Fprintf(stderr, "failed to export %s: %v\n", name, err)
				failed++
				continue
			}
			fmt.Fprintf(stdout, "exported: %s\n", filepath.Join(opts.csvDir, name))
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// expandPaths turns folders into the spreadsheets below them
func expandPaths(args []string) (paths, rejected []string) {
	d := files.NewDiscovery("")
	var plain []string
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			found, err := d.FindSpreadsheets(arg)
			if err != nil {
				rejected = append(rejected, arg)
				continue
			}
			paths = append(paths, files.Paths(found)...)
			continue
		}
		plain = append(plain, arg)
	}
	found, bad := d.StatFiles(plain)
	paths = append(paths, files.Paths(found)...)
	rejected = append(rejected, bad...)
	return paths, rejected
}

func printPreview(w io.Writer, t *domain.RawTable) {
	if t == nil || len(t.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.StringRows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
