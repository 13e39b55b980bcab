package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// spreadsheetExtensions lists the extensions treated as spreadsheet inputs
var spreadsheetExtensions = []string{".xlsx", ".xls"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// passed to its methods are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// IsSpreadsheet reports whether name has a spreadsheet extension and is not
// an office lock file (~$name.xlsx).
func IsSpreadsheet(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return false
	}
	lower := strings.ToLower(base)
	for _, ext := range spreadsheetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindSpreadsheets walks dir recursively and returns every spreadsheet file
// sorted by path. Unreadable subdirectories are skipped.
func (d *Discovery) FindSpreadsheets(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", fullPath)
	}

	var files []FileInfo
	err = filepath.WalkDir(fullPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if entry != nil && entry.IsDir() && path != fullPath {
				return fs.SkipDir
			}
			return err
		}
		if entry.IsDir() || !IsSpreadsheet(entry.Name()) {
			return nil
		}
		fi, err := entry.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:    path,
			Name:    entry.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", fullPath, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// StatFiles describes an explicit list of paths, keeping only existing
// spreadsheet files. The order of paths is preserved.
func (d *Discovery) StatFiles(paths []string) ([]FileInfo, []string) {
	var (
		files    []FileInfo
		rejected []string
	)
	for _, p := range paths {
		full := d.resolve(p)
		fi, err := os.Stat(full)
		if err != nil || fi.IsDir() || !IsSpreadsheet(full) {
			rejected = append(rejected, p)
			continue
		}
		files = append(files, FileInfo{
			Path:    full,
			Name:    filepath.Base(full),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return files, rejected
}

// Paths returns the Path of every entry
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func (d *Discovery) resolve(p string) string {
	if filepath.IsAbs(p) || d.basePath == "" {
		return p
	}
	return filepath.Join(d.basePath, p)
}
