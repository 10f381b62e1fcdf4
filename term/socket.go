package term

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"
)

// socketEvents receives transport lifecycle callbacks: exactly one onOpen
// per successful dial, one onClose per connection attempt (successful or
// not), onError before onClose on failures, and onMessage per received
// message in arrival order.
type socketEvents struct {
	onOpen    func()
	onMessage func(data []byte)
	onError   func(err error)
	onClose   func(code int)
}

// socket owns exactly one WebSocket connection. Failures are reported
// through the event callbacks, never returned across the async boundary.
type socket struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	dialer *websocket.Dialer
	events socketEvents
	log    pslog.Logger
}

func newSocket(dialer *websocket.Dialer, events socketEvents, log pslog.Logger) *socket {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &socket{dialer: dialer, events: events, log: log}
}

// connect dials the endpoint asynchronously. The bearer credential is part
// of the endpoint URL; see sessionEndpoint.
func (s *socket) connect(ctx context.Context, endpoint string) {
	go func() {
		conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			s.log.Debug("socket dial failed", "err", err)
			s.events.onError(err)
			s.events.onClose(websocket.CloseAbnormalClosure)
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()
		s.events.onOpen()
		s.readLoop(conn)
	}()
}

// readLoop is the sole reader; messages are delivered in arrival order.
func (s *socket) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			if closeErr, ok := err.(*websocket.CloseError); ok {
				code = closeErr.Code
			}
			s.mu.Lock()
			intentional := s.closed
			s.conn = nil
			s.mu.Unlock()
			if !intentional && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events.onError(err)
			}
			s.events.onClose(code)
			return
		}
		s.events.onMessage(msg)
	}
}

// send transmits a frame if and only if the connection is open. Frames sent
// while not open are dropped; keystrokes lost during a disconnected window
// are an accepted limitation, not queued for later.
func (s *socket) send(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conn == nil {
		s.log.Debug("socket send dropped", "bytes", len(frame))
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.log.Debug("socket write failed", "err", err)
	}
}

// close performs a clean shutdown; idempotent.
func (s *socket) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}
