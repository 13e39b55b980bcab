package domain

import "time"

// FileCategory separates market/sector level files from single-entity files.
type FileCategory string

const (
	CategoryAggregate FileCategory = "aggregate"
	CategoryEntity    FileCategory = "entity"
)

// DateSource tells where a ClassifiedFile's date was found.
type DateSource string

const (
	DateFromFilename DateSource = "filename"
	DateFromPath     DateSource = "path"
	DateFromModTime  DateSource = "mtime"
	DateFromNow      DateSource = "now"
)

// ClassifiedFile is an input file with its category and statistics date.
type ClassifiedFile struct {
	Path       string       `json:"path"`
	Category   FileCategory `json:"category"`
	Date       time.Time    `json:"date"`
	DateSource DateSource   `json:"date_source"`
}

// HasDate reports whether a date could be extracted from the name or path,
// as opposed to being inferred from file metadata or the clock.
func (c ClassifiedFile) HasDate() bool {
	return c.DateSource == DateFromFilename || c.DateSource == DateFromPath
}

// DatedTable pairs an ingested table with its classification.
type DatedTable struct {
	File  ClassifiedFile
	Table *RawTable
}
