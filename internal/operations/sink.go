package operations

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind distinguishes progress transitions from free-text log lines
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventLog      EventKind = "log"
)

// Event is emitted by a run. Progress events carry the new State and its
// Percent; log events carry a Level.
type Event struct {
	Kind    EventKind  `json:"kind"`
	RunID   string     `json:"run_id,omitempty"`
	State   State      `json:"state,omitempty"`
	Percent int        `json:"percent"`
	Message string     `json:"message"`
	Level   slog.Level `json:"level,omitempty"`
	Time    time.Time  `json:"time"`
}

// Sink consumes run events. Emit must not block for long: runs call it
// inline.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// Emit implements Sink
func (f SinkFunc) Emit(e Event) { f(e) }

// DiscardSink drops every event
var DiscardSink Sink = SinkFunc(func(Event) {})

// ChannelSink forwards events to a buffered channel without blocking. Events
// that do not fit are dropped and counted.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Int64
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewChannelSink creates a ChannelSink with the given buffer size
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = 64
	}
	return &ChannelSink{ch: make(chan Event, size)}
}

// Emit implements Sink
func (s *ChannelSink) Emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the receive side of the channel
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Dropped returns the number of events lost to a full or closed channel
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close closes the channel. Later events are dropped.
func (s *ChannelSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// LogSink writes events to a structured logger
type LogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink
func (s LogSink) Emit(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{slog.String("run_id", e.RunID)}
	if e.Kind == EventProgress {
		attrs = append(attrs, slog.String("state", e.State.String()), slog.Int("percent", e.Percent))
		logger.LogAttrs(context.Background(), slog.LevelInfo, e.Message, attrs...)
		return
	}
	logger.LogAttrs(context.Background(), e.Level, e.Message, attrs...)
}

// MultiSink fans an event out to every sink in order
type MultiSink []Sink

// Emit implements Sink
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
