package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Manager writes output files inside a base directory
type Manager struct {
	baseDir string
	logger  *slog.Logger
}

// NewManager creates a new file manager rooted at baseDir
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{baseDir: baseDir, logger: logger}
}

// BaseDir returns the directory files are written to
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// EnsureDirectory creates the base directory if needed
func (m *Manager) EnsureDirectory() error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", m.baseDir, err)
	}
	return nil
}

// UniquePath returns baseDir/name+ext, adding _2, _3, ... when a file with
// that name already exists.
func (m *Manager) UniquePath(name, ext string) string {
	candidate := filepath.Join(m.baseDir, name+ext)
	for i := 2; FileExists(candidate); i++ {
		candidate = filepath.Join(m.baseDir, name+"_"+strconv.Itoa(i)+ext)
	}
	return candidate
}

// WriteAtomic writes path through a temporary file in the same directory and
// renames it into place, so readers never observe a partial file.
func (m *Manager) WriteAtomic(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	m.logger.Debug("File written", slog.String("path", path))
	return nil
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
