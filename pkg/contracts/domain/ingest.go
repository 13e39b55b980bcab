package domain

import "time"

// StrategyUnreadable marks an IngestResult for which every read attempt failed.
const StrategyUnreadable = "unreadable"

// AttemptFailure records why a single read configuration did not produce a table.
type AttemptFailure struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// IngestResult is the outcome of reading one spreadsheet file.
type IngestResult struct {
	Table      *RawTable        `json:"-"`
	Strategy   string           `json:"strategy"`
	SourcePath string           `json:"source_path"`
	Attempts   []AttemptFailure `json:"attempts,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// OK reports whether a usable table was read.
func (r IngestResult) OK() bool {
	return r.Table != nil && r.Strategy != StrategyUnreadable
}
