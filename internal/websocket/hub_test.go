package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/pkg/contracts/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func dial(t *testing.T, srv *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) events.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastToClients(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(NewHandler(hub, false, discardLogger()))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)

	assert.Equal(t, events.MessageTypeConnect, readMessage(t, a).Type)
	assert.Equal(t, events.MessageTypeConnect, readMessage(t, b).Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(events.MessageTypeAnalysisSnapshot, events.AnalysisSnapshot{
		RunID: "run-1", State: "ingesting", Progress: 30,
	}, "trace-1")

	for _, conn := range []*gws.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, events.MessageTypeAnalysisSnapshot, msg.Type)
		assert.Equal(t, "trace-1", msg.TraceID)
		data, ok := msg.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "run-1", data["run_id"])
		assert.Equal(t, float64(30), data["progress"])
	}

	require.Eventually(t, func() bool { return hub.Stats().MessagesSent >= 2 }, time.Second, 10*time.Millisecond)
}

func TestHubUnregistersClosedClient(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(NewHandler(hub, false, discardLogger()))
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats().TotalConnections)
}

func TestHubRejectsCrossOrigin(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(NewHandler(hub, false, discardLogger()))
	defer srv.Close()

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

// stubConn is a Connection that records writes and blocks reads until closed
type stubConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newStubConn() *stubConn { return &stubConn{closed: make(chan struct{})} }

func (s *stubConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, data)
	return nil
}

func (s *stubConn) ReadMessage() (int, []byte, error) {
	<-s.closed
	return 0, nil, &gws.CloseError{Code: gws.CloseNormalClosure}
}

func (s *stubConn) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *stubConn) SetReadDeadline(time.Time) error   { return nil }
func (s *stubConn) SetWriteDeadline(time.Time) error  { return nil }
func (s *stubConn) SetReadLimit(int64)                {}
func (s *stubConn) SetPongHandler(func(string) error) {}
func (s *stubConn) RemoteAddr() string                { return "127.0.0.1:9999" }

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	defer hub.Stop()

	// No write pump runs, so the send buffer fills up
	client := NewClient(hub, newStubConn(), "", discardLogger())
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Broadcast(events.MessageTypeAnalysisLog, events.LogLine{RunID: "r", Message: "line"}, "")
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()

	// Registration after stop must not block
	done := make(chan struct{})
	go func() {
		hub.Register(NewClient(hub, newStubConn(), "", discardLogger()))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register blocked after Stop")
	}
}
