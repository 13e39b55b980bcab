package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockdesk/internal/infrastructure"
	"stockdesk/internal/operations"
	"stockdesk/pkg/contracts/events"
)

const (
	// DefaultHistoryLimit is the number of finished runs kept for GET requests
	DefaultHistoryLimit = 20

	// maxRunLogs bounds the log lines kept per run
	maxRunLogs = 500
)

// Runner executes one analysis
type Runner interface {
	Validate(req operations.Request) error
	Run(ctx context.Context, req operations.Request, sink operations.Sink) *operations.Result
}

// Broadcaster pushes messages to connected clients
type Broadcaster interface {
	Broadcast(t events.MessageType, data any, traceID string)
}

// RunSnapshot is a point-in-time copy of a run
type RunSnapshot struct {
	RunID      string
	Request    operations.Request
	State      operations.State
	Percent    int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	Result     *operations.Result
	Logs       []operations.Event
}

// Active reports whether the run has not reached a terminal state
func (s RunSnapshot) Active() bool {
	return !s.State.IsTerminal()
}

type runRecord struct {
	mu       sync.Mutex
	snapshot RunSnapshot
	traceID  string
	cancel   context.CancelFunc
	done     chan struct{}
}

func (r *runRecord) copy() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snapshot
	s.Logs = append([]operations.Event(nil), r.snapshot.Logs...)
	return s
}

// AnalysisService runs analyses in the background, one at a time, and keeps
// a bounded history of finished runs.
type AnalysisService struct {
	hub         Broadcaster
	orch        Runner
	logger      *slog.Logger
	historySize int

	mu     sync.Mutex
	runs   map[string]*runRecord
	order  []string
	active string
	closed bool
	wg     sync.WaitGroup
}

// NewAnalysisService creates an AnalysisService. hub may be nil.
func NewAnalysisService(orch Runner, hub Broadcaster, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &AnalysisService{
		hub:         hub,
		orch:        orch,
		logger:      infrastructure.WithComponent(logger, "analysis_service"),
		historySize: DefaultHistoryLimit,
		runs:        make(map[string]*runRecord),
	}
}

// Start validates req and launches it in the background. The run is
// detached from ctx; only its trace ID is carried over. Use Cancel to stop it.
func (s *AnalysisService) Start(ctx context.Context, req operations.Request) (RunSnapshot, error) {
	if err := s.orch.Validate(req); err != nil {
		return RunSnapshot{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return RunSnapshot{}, ErrServiceClosed
	}
	if s.active != "" {
		s.mu.Unlock()
		return RunSnapshot{}, ErrRunInProgress
	}

	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	traceID := infrastructure.GetTraceID(ctx)
	runCtx := context.Background()
	if traceID != "" {
		runCtx = infrastructure.WithTraceID(runCtx, traceID)
	}
	runCtx, cancel := context.WithCancel(runCtx)

	rec := &runRecord{
		snapshot: RunSnapshot{
			RunID:     req.RunID,
			Request:   req,
			State:     operations.StateIdle,
			StartedAt: time.Now(),
		},
		traceID: traceID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.runs[req.RunID] = rec
	s.order = append(s.order, req.RunID)
	s.active = req.RunID
	s.trimHistoryLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Analysis started",
		slog.String("run_id", req.RunID),
		slog.String("folder", req.Folder),
		slog.Int("files", len(req.Files)))

	snapshot := rec.copy()
	go s.execute(runCtx, rec, req)
	return snapshot, nil
}

func (s *AnalysisService) execute(ctx context.Context, rec *runRecord, req operations.Request) {
	defer s.wg.Done()
	defer close(rec.done)
	defer rec.cancel()

	result := s.orch.Run(ctx, req, operations.SinkFunc(func(e operations.Event) {
		s.record(rec, e)
	}))

	rec.mu.Lock()
	rec.snapshot.State = result.State
	rec.snapshot.Err = result.Err
	rec.snapshot.Result = result
	rec.snapshot.FinishedAt = time.Now()
	if result.State == operations.StateDone {
		rec.snapshot.Percent = 100
	}
	final := rec.snapshot
	rec.mu.Unlock()

	s.mu.Lock()
	if s.active == final.RunID {
		s.active = ""
	}
	s.mu.Unlock()

	s.broadcastSnapshot(rec.traceID, final)
	level := slog.LevelInfo
	if result.Err != nil {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "Analysis finished",
		slog.String("run_id", final.RunID),
		slog.String("state", final.State.String()),
		slog.Duration("duration", result.Duration))
}

// record folds an event into the run's snapshot and forwards it to clients
func (s *AnalysisService) record(rec *runRecord, e operations.Event) {
	rec.mu.Lock()
	switch e.Kind {
	case operations.EventProgress:
		// The terminal state is published once Run returns, with its result
		if e.State.IsTerminal() {
			rec.snapshot.Message = e.Message
			rec.mu.Unlock()
			return
		}
		rec.snapshot.State = e.State
		rec.snapshot.Percent = e.Percent
		rec.snapshot.Message = e.Message
	case operations.EventLog:
		rec.snapshot.Logs = append(rec.snapshot.Logs, e)
		if n := len(rec.snapshot.Logs); n > maxRunLogs {
			rec.snapshot.Logs = rec.snapshot.Logs[n-maxRunLogs:]
		}
	}
	snap := rec.snapshot
	rec.mu.Unlock()

	if e.Kind == operations.EventLog {
		if s.hub != nil {
			s.hub.Broadcast(events.MessageTypeAnalysisLog, events.LogLine{
				RunID:   e.RunID,
				Level:   e.Level.String(),
				Message: e.Message,
				Time:    e.Time,
			}, rec.traceID)
		}
		return
	}
	s.broadcastSnapshot(rec.traceID, snap)
}

func (s *AnalysisService) broadcastSnapshot(traceID string, snap RunSnapshot) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(events.MessageTypeAnalysisSnapshot, ToEventSnapshot(snap), traceID)
}

// ToEventSnapshot converts a RunSnapshot to its wire form
func ToEventSnapshot(snap RunSnapshot) events.AnalysisSnapshot {
	out := events.AnalysisSnapshot{
		RunID:     snap.RunID,
		State:     snap.State.String(),
		Progress:  snap.Percent,
		Message:   snap.Message,
		StartedAt: snap.StartedAt,
		UpdatedAt: time.Now(),
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		out.CompletedAt = &finished
	}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
		out.ErrorType = string(operations.GetErrorType(snap.Err))
	}
	if snap.Result != nil && snap.Result.Report != nil {
		out.ReportPath = snap.Result.Report.FilePath
		out.Degraded = snap.Result.Report.Degraded
	}
	return out
}

// Get returns the snapshot of a run
func (s *AnalysisService) Get(runID string) (RunSnapshot, error) {
	s.mu.Lock()
	rec, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return RunSnapshot{}, ErrRunNotFound
	}
	return rec.copy(), nil
}

// List returns every known run, newest first
func (s *AnalysisService) List() []RunSnapshot {
	s.mu.Lock()
	recs := make([]*runRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		recs = append(recs, s.runs[s.order[i]])
	}
	s.mu.Unlock()

	out := make([]RunSnapshot, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.copy())
	}
	return out
}

// Active returns the ID of the running analysis, if any
func (s *AnalysisService) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// Cancel requests cancellation of a running analysis. The run reaches the
// cancelled state at its next checkpoint.
func (s *AnalysisService) Cancel(runID string) error {
	s.mu.Lock()
	rec, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return ErrRunNotFound
	}

	select {
	case <-rec.done:
		return ErrRunNotActive
	default:
	}

	s.logger.Info("Cancelling analysis", slog.String("run_id", runID))
	rec.cancel()
	return nil
}

// Wait blocks until the run finishes or ctx is done
func (s *AnalysisService) Wait(ctx context.Context, runID string) (RunSnapshot, error) {
	s.mu.Lock()
	rec, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return RunSnapshot{}, ErrRunNotFound
	}
	select {
	case <-rec.done:
		return rec.copy(), nil
	case <-ctx.Done():
		return rec.copy(), ctx.Err()
	}
}

// Shutdown refuses new runs, cancels the active one and waits for it
func (s *AnalysisService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var rec *runRecord
	if s.active != "" {
		rec = s.runs[s.active]
	}
	s.mu.Unlock()

	if rec != nil {
		rec.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trimHistoryLocked drops the oldest finished runs beyond historySize
func (s *AnalysisService) trimHistoryLocked() {
	for len(s.order) > s.historySize {
		dropped := false
		for i, id := range s.order {
			if id == s.active {
				continue
			}
			delete(s.runs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			dropped = true
			break
		}
		if !dropped {
			return
		}
	}
}
