package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/infrastructure"
	"stockdesk/internal/operations"
	"stockdesk/pkg/contracts/domain"
	"stockdesk/pkg/contracts/events"
)

// blockingRunner emits a few events and then waits for release or cancellation
type blockingRunner struct {
	release chan struct{}
	started chan string
	validate error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{}), started: make(chan string, 4)}
}

func (b *blockingRunner) Validate(req operations.Request) error { return b.validate }

func (b *blockingRunner) Run(ctx context.Context, req operations.Request, sink operations.Sink) *operations.Result {
	sink.Emit(operations.Event{Kind: operations.EventProgress, RunID: req.RunID, State: operations.StateScanning, Percent: 10, Message: "Scanning"})
	sink.Emit(operations.Event{Kind: operations.EventLog, RunID: req.RunID, Level: slog.LevelInfo, Message: "Found 2 files"})
	b.started <- req.RunID

	select {
	case <-b.release:
		sink.Emit(operations.Event{Kind: operations.EventProgress, RunID: req.RunID, State: operations.StateDone, Percent: 100, Message: "done"})
		return &operations.Result{
			RunID:  req.RunID,
			State:  operations.StateDone,
			Report: &domain.AnalysisReport{FilePath: "/tmp/report.md"},
		}
	case <-ctx.Done():
		err := operations.NewCancellationError(operations.StateScanning, ctx.Err())
		sink.Emit(operations.Event{Kind: operations.EventProgress, RunID: req.RunID, State: operations.StateCancelled, Percent: 10, Message: err.Error()})
		return &operations.Result{RunID: req.RunID, State: operations.StateCancelled, Err: err}
	}
}

type recordingHub struct {
	mu       sync.Mutex
	messages []events.Message
}

func (h *recordingHub) Broadcast(t events.MessageType, data any, traceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, events.Message{Type: t, Data: data, TraceID: traceID})
}

func (h *recordingHub) snapshots() []events.AnalysisSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.AnalysisSnapshot
	for _, m := range h.messages {
		if s, ok := m.Data.(events.AnalysisSnapshot); ok {
			out = append(out, s)
		}
	}
	return out
}

func validRequest() operations.Request {
	return operations.Request{Folder: "/data", Prompt: "分析"}
}

func TestAnalysisServiceRunsToCompletion(t *testing.T) {
	runner := newBlockingRunner()
	hub := &recordingHub{}
	svc := NewAnalysisService(runner, hub, slog.Default())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-42")
	snap, err := svc.Start(ctx, validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, snap.RunID)
	assert.Equal(t, operations.StateIdle, snap.State)

	<-runner.started
	id, active := svc.Active()
	assert.True(t, active)
	assert.Equal(t, snap.RunID, id)

	running, err := svc.Get(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, operations.StateScanning, running.State)
	assert.Equal(t, 10, running.Percent)
	require.Len(t, running.Logs, 1)
	assert.Equal(t, "Found 2 files", running.Logs[0].Message)

	close(runner.release)
	final, err := svc.Wait(context.Background(), snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, operations.StateDone, final.State)
	assert.Equal(t, 100, final.Percent)
	assert.False(t, final.FinishedAt.IsZero())
	require.NotNil(t, final.Result)
	assert.Equal(t, "/tmp/report.md", final.Result.Report.FilePath)

	_, active = svc.Active()
	assert.False(t, active)

	snaps := hub.snapshots()
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, "done", last.State)
	assert.Equal(t, "/tmp/report.md", last.ReportPath)
	require.NotNil(t, last.CompletedAt)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	var logs int
	for _, m := range hub.messages {
		assert.Equal(t, "trace-42", m.TraceID)
		if m.Type == events.MessageTypeAnalysisLog {
			logs++
		}
	}
	assert.Equal(t, 1, logs)
}

func TestAnalysisServiceSingleRun(t *testing.T) {
	runner := newBlockingRunner()
	svc := NewAnalysisService(runner, nil, nil)

	first, err := svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	<-runner.started

	_, err = svc.Start(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.release)
	_, err = svc.Wait(context.Background(), first.RunID)
	require.NoError(t, err)

	second, err := svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	<-runner.started
	_, err = svc.Wait(context.Background(), second.RunID)
	require.NoError(t, err)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.RunID, list[0].RunID)
}

func TestAnalysisServiceCancel(t *testing.T) {
	runner := newBlockingRunner()
	hub := &recordingHub{}
	svc := NewAnalysisService(runner, hub, nil)

	snap, err := svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	<-runner.started

	require.NoError(t, svc.Cancel(snap.RunID))
	final, err := svc.Wait(context.Background(), snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, operations.StateCancelled, final.State)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(final.Err))

	assert.ErrorIs(t, svc.Cancel(snap.RunID), ErrRunNotActive)
	assert.ErrorIs(t, svc.Cancel("missing"), ErrRunNotFound)

	snaps := hub.snapshots()
	last := snaps[len(snaps)-1]
	assert.Equal(t, "cancelled", last.State)
	assert.Equal(t, "cancellation", last.ErrorType)
}

func TestAnalysisServiceValidation(t *testing.T) {
	runner := newBlockingRunner()
	runner.validate = operations.NewValidationError(operations.ErrEmptyPrompt)
	svc := NewAnalysisService(runner, nil, nil)

	_, err := svc.Start(context.Background(), operations.Request{Folder: "/data"})
	assert.True(t, operations.IsValidation(err))
	assert.Empty(t, svc.List())
}

func TestAnalysisServiceGetUnknown(t *testing.T) {
	svc := NewAnalysisService(newBlockingRunner(), nil, nil)
	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = svc.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestAnalysisServiceShutdown(t *testing.T) {
	runner := newBlockingRunner()
	svc := NewAnalysisService(runner, nil, nil)

	snap, err := svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	final, err := svc.Get(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, operations.StateCancelled, final.State)

	_, err = svc.Start(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrServiceClosed)
}

func TestAnalysisServiceHistoryLimit(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	svc := NewAnalysisService(runner, nil, nil)
	svc.historySize = 3

	for i := 0; i < 5; i++ {
		snap, err := svc.Start(context.Background(), validRequest())
		require.NoError(t, err)
		<-runner.started
		_, err = svc.Wait(context.Background(), snap.RunID)
		require.NoError(t, err)
	}
	assert.Len(t, svc.List(), 3)
}
