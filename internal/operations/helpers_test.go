package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockdesk/internal/narrative"
	"stockdesk/pkg/contracts/domain"
)

var (
	stockColumns = []string{"代码", "名称", "收盘"}
	boardColumns = []string{"板块", "涨跌幅", "成交额"}
)

// fakeIngestor returns preset tables by file name; other files are unreadable
type fakeIngestor struct {
	tables map[string]*domain.RawTable
	onRead func(path string)
	calls  []string
}

func (f *fakeIngestor) Ingest(ctx context.Context, path string) domain.IngestResult {
	f.calls = append(f.calls, filepath.Base(path))
	if f.onRead != nil {
		f.onRead(path)
	}
	res := domain.IngestResult{SourcePath: path, Strategy: domain.StrategyUnreadable}
	t, ok := f.tables[filepath.Base(path)]
	if !ok {
		res.Attempts = []domain.AttemptFailure{
			{Strategy: "excelize/first-sheet", Reason: "not a zip file"},
			{Strategy: "html", Reason: "no table element"},
		}
		return res
	}
	res.Table = t
	res.Strategy = "fake"
	return res
}

// recordingWriter captures exported reports
type recordingWriter struct {
	reports []*domain.AnalysisReport
	formats [][]string
	err     error
}

func (w *recordingWriter) Export(r *domain.AnalysisReport, formats []string) error {
	if w.err != nil {
		return w.err
	}
	r.FilePath = filepath.Join("out", "report.md")
	w.reports = append(w.reports, r)
	w.formats = append(w.formats, formats)
	return nil
}

// eventRecorder is a Sink that keeps every event
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventRecorder) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventRecorder) states() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []State
	for _, ev := range e.events {
		if ev.Kind == EventProgress {
			out = append(out, ev.State)
		}
	}
	return out
}

func (e *eventRecorder) percents() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []int
	for _, ev := range e.events {
		if ev.Kind == EventProgress {
			out = append(out, ev.Percent)
		}
	}
	return out
}

func (e *eventRecorder) logs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		if ev.Kind == EventLog {
			out = append(out, ev.Message)
		}
	}
	return out
}

// touch creates empty files under dir and returns their paths
func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
		paths = append(paths, p)
	}
	return paths
}

// marketFixture is two days of two stocks plus one board file
func marketFixture() map[string]*domain.RawTable {
	return map[string]*domain.RawTable{
		"股票A_20250101.xlsx": domain.NewRawTable(stockColumns, [][]string{
			{"600000", "浦发银行", "10"},
			{"000001", "平安银行", "20"},
		}),
		"股票A_20250102.xlsx": domain.NewRawTable(stockColumns, [][]string{
			{"600000", "浦发银行", "15"},
			{"000001", "平安银行", "18"},
		}),
		"板块_20250101.xlsx": domain.NewRawTable(boardColumns, [][]string{
			{"银行", "1.5", "1000"},
			{"地产", "-0.5", "800"},
		}),
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 3, 9, 30, 0, 0, time.Local)
}

func newTestOrchestrator(ing FileIngestor, n narrative.Narrator, w ReportWriter, opts Options) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Ingestor: ing,
		Narrator: n,
		Writer:   w,
		Clock:    fixedClock,
	}, opts)
}

func staticNarrator(text string) narrative.Narrator {
	return narrative.NarratorFunc(func(ctx context.Context, req narrative.Request) (string, error) {
		return text, nil
	})
}

var errRemote = errors.New("connection refused")

func failingNarrator() narrative.Narrator {
	return narrative.NarratorFunc(func(ctx context.Context, req narrative.Request) (string, error) {
		return "", errRemote
	})
}
