package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Converter runs a headless spreadsheet application to convert a file to
// .xlsx, then reads the result with excelize. The temporary directory is
// always removed, and the process is killed when the timeout or the caller's
// context expires.
type Converter struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewConverter returns a converter for binary, or nil when the binary cannot
// be found on PATH.
func NewConverter(binary string, timeout time.Duration, logger *slog.Logger) *Converter {
	if binary == "" {
		return nil
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		if logger != nil {
			logger.Warn("Spreadsheet converter not found; convert strategy disabled",
				slog.String("binary", binary))
		}
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{Binary: resolved, Timeout: timeout, Logger: logger}
}

// Read implements Reader
func (c *Converter) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	if c == nil || c.Binary == "" {
		return nil, errors.New("converter not configured")
	}

	tmpDir, err := os.MkdirTemp("", "stockdesk-convert-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(runCtx, c.Binary,
		"--headless", "--norestore", "--convert-to", "xlsx", "--outdir", tmpDir, abs)
	// A private profile directory lets conversions run while the desktop app is open.
	cmd.Env = append(os.Environ(), "HOME="+tmpDir)

	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("conversion timed out after %s: %w", timeout, runCtx.Err())
		}
		return nil, fmt.Errorf("conversion failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	converted := filepath.Join(tmpDir, strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))+".xlsx")
	if _, err := os.Stat(converted); err != nil {
		return nil, fmt.Errorf("converter produced no output: %s", strings.TrimSpace(string(out)))
	}

	c.Logger.Debug("Converted spreadsheet",
		slog.String("source", path),
		slog.Duration("duration", time.Since(start)))

	return ExcelizeReader{}.Read(ctx, converted, Strategy{HeaderMode: s.HeaderMode, Sheet: s.Sheet})
}
