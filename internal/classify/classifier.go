package classify

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"stockdesk/pkg/contracts/domain"
)

// DefaultAggregateMarker is the filename keyword of sector and market files
const DefaultAggregateMarker = "板块"

// digitRun matches runs long enough to hold a YYYYMMDD token
var digitRun = regexp.MustCompile(`[0-9]{8,}`)

// Classifier assigns a category and a statistics date to input files
type Classifier struct {
	marker string
	now    func() time.Time
	stat   func(string) (os.FileInfo, error)
	logger *slog.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithMarker sets the aggregate filename keyword
func WithMarker(marker string) Option {
	return func(c *Classifier) {
		if marker != "" {
			c.marker = marker
		}
	}
}

// WithClock replaces time.Now for the last-resort date
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier
func New(opts ...Option) *Classifier {
	c := &Classifier{
		marker: DefaultAggregateMarker,
		now:    time.Now,
		stat:   os.Stat,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Marker returns the aggregate keyword in use
func (c *Classifier) Marker() string {
	return c.marker
}

// Classify returns the file's category and date. The date comes from, in
// order: the base filename, each parent directory from the nearest outwards,
// the file modification time, and finally the current day.
func (c *Classifier) Classify(path string) domain.ClassifiedFile {
	base := filepath.Base(path)
	cf := domain.ClassifiedFile{Path: path, Category: domain.CategoryEntity}
	if strings.Contains(base, c.marker) {
		cf.Category = domain.CategoryAggregate
	}

	if d, ok := ExtractDate(base); ok {
		cf.Date, cf.DateSource = d, domain.DateFromFilename
		return cf
	}

	dir := filepath.Dir(path)
	for {
		part := filepath.Base(dir)
		if d, ok := ExtractDate(part); ok {
			cf.Date, cf.DateSource = d, domain.DateFromPath
			return cf
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if info, err := c.stat(path); err == nil {
		cf.Date, cf.DateSource = truncateDay(info.ModTime()), domain.DateFromModTime
		c.logger.Debug("No date in path; using modification time",
			slog.String("path", path), slog.Time("date", cf.Date))
		return cf
	}

	cf.Date, cf.DateSource = truncateDay(c.now()), domain.DateFromNow
	c.logger.Warn("No date found for file; using current day", slog.String("path", path))
	return cf
}

// ExtractDate returns the first eight-digit window that parses as a valid
// YYYYMMDD date. Windows inside longer runs count, so a timestamp such as
// 20250101153000 yields 2025-01-01.
func ExtractDate(s string) (time.Time, bool) {
	for _, run := range digitRun.FindAllString(s, -1) {
		for i := 0; i+8 <= len(run); i++ {
			if d, err := time.ParseInLocation("20060102", run[i:i+8], time.Local); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
