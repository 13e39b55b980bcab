package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains the file system locations used by a run.
type Paths struct {
	ExecutableDir string
	LogsDir       string
	OutputDir     string
}

// GetPaths resolves application paths. Logs live next to the executable; reports go to the configured output directory or the desktop.
func GetPaths(cfg PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}
	exeDir := filepath.Dir(exe)

	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(exeDir, logsDir)
	}

	outputDir, err := ResolveOutputDir(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	paths := &Paths{
		ExecutableDir: exeDir,
		LogsDir:       logsDir,
		OutputDir:     outputDir,
	}

	slog.Default().Debug("Resolved application paths",
		slog.String("exe_dir", exeDir),
		slog.String("logs_dir", logsDir),
		slog.String("output_dir", outputDir))

	return paths, nil
}

// ResolveOutputDir returns the directory reports are written to. An explicit
// directory wins; otherwise ~/Desktop is used when it exists, then the home
// directory.
func ResolveOutputDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	desktop := filepath.Join(home, "Desktop")
	if info, err := os.Stat(desktop); err == nil && info.IsDir() {
		return desktop, nil
	}
	return home, nil
}

// EnsureDirectories creates all necessary directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.LogsDir,
		p.OutputDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(logName string) string {
	return filepath.Join(p.LogsDir, logName)
}

// ResolveLogFile places a relative log file path under LogsDir. Absolute
// paths are returned unchanged.
func (p *Paths) ResolveLogFile(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return p.GetLogPath(filepath.Base(path))
}

// ReportBaseName returns the report file name without extension for a
// generation time, e.g. 股票分析报告_20250101_093000.
func ReportBaseName(t time.Time) string {
	return ReportFilePrefix + "_" + t.Format(ReportTimeLayout)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
