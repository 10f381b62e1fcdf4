package term

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/gitguide/schema"
)

// testBackend is a minimal workspace terminal endpoint: it upgrades,
// confirms a session, and records the frames the client sends.
type testBackend struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	nextSession int
	conns       []*backendConn
	accepted    chan *backendConn
	rejectAll   bool
}

type backendConn struct {
	sessionID schema.SessionID
	token     string
	reattach  bool

	mu     sync.Mutex
	conn   *websocket.Conn
	inputs chan []byte
	sizes  chan schema.ResizePayload
	pings  chan struct{}
	gone   chan struct{}
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{
		t:           t,
		nextSession: 42,
		accepted:    make(chan *backendConn, 16),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) baseURL() string { return b.srv.URL }

func (b *testBackend) setRejectAll(reject bool) {
	b.mu.Lock()
	b.rejectAll = reject
	b.mu.Unlock()
}

func (b *testBackend) acceptCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *testBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if b.rejectAll {
		b.mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	b.mu.Unlock()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sessionID := schema.SessionID(r.URL.Query().Get("session_id"))
	reattach := sessionID != ""
	if sessionID == "" {
		b.mu.Lock()
		sessionID = schema.SessionID("sess-" + strconv.Itoa(b.nextSession))
		b.nextSession++
		b.mu.Unlock()
	}
	bc := &backendConn{
		sessionID: sessionID,
		token:     r.URL.Query().Get("token"),
		reattach:  reattach,
		conn:      conn,
		inputs:    make(chan []byte, 64),
		sizes:     make(chan schema.ResizePayload, 64),
		pings:     make(chan struct{}, 64),
		gone:      make(chan struct{}),
	}
	b.mu.Lock()
	b.conns = append(b.conns, bc)
	b.mu.Unlock()

	confirm, err := schema.EncodeSessionConfirmed(sessionID)
	if err != nil {
		b.t.Errorf("encode session confirmed: %v", err)
		conn.Close()
		return
	}
	bc.write(confirm)
	b.accepted <- bc

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			close(bc.gone)
			return
		}
		frame, err := schema.DecodeClientFrame(msg)
		if err != nil {
			b.t.Errorf("backend received invalid frame: %v", err)
			continue
		}
		switch frame.Type {
		case schema.FrameInput:
			bc.inputs <- append([]byte(nil), frame.Data...)
		case schema.FrameResize:
			bc.sizes <- frame.Resize
		case schema.FramePing:
			bc.pings <- struct{}{}
		}
	}
}

func (bc *backendConn) write(msg []byte) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	_ = bc.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (bc *backendConn) sendOutput(data string) {
	bc.write(schema.EncodeOutput([]byte(data)))
}

// dropAbruptly severs the connection without a close handshake.
func (bc *backendConn) dropAbruptly() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	_ = bc.conn.Close()
}

// waitAccept waits for the backend to accept a connection.
func (b *testBackend) waitAccept(t *testing.T, timeout time.Duration) *backendConn {
	t.Helper()
	select {
	case bc := <-b.accepted:
		return bc
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for backend accept")
		return nil
	}
}

// expectNoAccept asserts no new connection arrives within the window.
func (b *testBackend) expectNoAccept(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case bc := <-b.accepted:
		t.Fatalf("unexpected backend accept for session %q", bc.sessionID)
	case <-time.After(window):
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
