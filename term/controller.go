package term

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/gitguide/internal/logx"
	"pkt.systems/gitguide/schema"
	"pkt.systems/pslog"
)

// DefaultReconnectDelay is the fixed wait between reconnect attempts.
const DefaultReconnectDelay = 3000 * time.Millisecond

// DefaultKeepaliveInterval is the fixed interval between keep-alive pings.
const DefaultKeepaliveInterval = 30 * time.Second

// ControllerConfig configures a session controller.
type ControllerConfig struct {
	BaseURL           string
	WorkspaceID       schema.WorkspaceID
	Token             string
	ReconnectDelay    time.Duration
	KeepaliveInterval time.Duration
	AutoReconnect     bool
	Dialer            *websocket.Dialer
	Logger            pslog.Logger
}

// Controller presents a simplified connection-status surface over the
// socket manager: it negotiates the session, runs keep-alives, and absorbs
// transient failures with a fixed-delay retry. Retries are unbounded; the
// remote container is expected to be present or briefly restarting, not
// permanently gone.
//
// All events reach the consumer through one callback, so ordering between
// event kinds is well defined.
type Controller struct {
	cfg  ControllerConfig
	emit func(schema.BridgeEvent)
	log  pslog.Logger

	mu         sync.Mutex
	status     schema.ConnStatus
	sessionID  schema.SessionID
	sock       *socket
	gen        int
	retryTimer *time.Timer
	keepStop   chan struct{}
}

// NewController constructs a controller. emit may be nil for callers that
// only poll Status.
func NewController(cfg ControllerConfig, emit func(schema.BridgeEvent)) *Controller {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = DefaultKeepaliveInterval
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = logx.WithWorkspace(log, cfg.WorkspaceID)
	if emit == nil {
		emit = func(schema.BridgeEvent) {}
	}
	return &Controller{
		cfg:    cfg,
		emit:   emit,
		log:    log,
		status: schema.StatusDisconnected,
	}
}

// Status reports the current connection status.
func (c *Controller) Status() schema.ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID reports the negotiated session id, empty until negotiated. The
// controller retains it across reconnects as its reattachment key.
func (c *Controller) SessionID() schema.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect starts a connection attempt. No-op while already connecting or
// connected.
func (c *Controller) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.status == schema.StatusConnecting || c.status == schema.StatusConnected {
		c.mu.Unlock()
		return
	}
	c.status = schema.StatusConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusConnecting})
	c.attempt(ctx, gen)
}

// attempt opens one socket for the given connection generation. Stale
// generations (superseded by Disconnect or a newer Connect) are ignored.
func (c *Controller) attempt(ctx context.Context, gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	endpoint, err := sessionEndpoint(c.cfg.BaseURL, c.cfg.WorkspaceID, c.sessionID, c.cfg.Token)
	if err != nil {
		c.mu.Unlock()
		c.handleError(gen, err)
		c.handleClose(ctx, gen, websocket.CloseAbnormalClosure)
		return
	}
	sock := newSocket(c.cfg.Dialer, socketEvents{
		onOpen:    func() { c.handleOpen(gen) },
		onMessage: func(data []byte) { c.handleMessage(gen, data) },
		onError:   func(err error) { c.handleError(gen, err) },
		onClose:   func(code int) { c.handleClose(ctx, gen, code) },
	}, c.log)
	c.sock = sock
	c.mu.Unlock()
	c.log.Debug("bridge connecting", "endpoint_workspace", c.cfg.WorkspaceID)
	sock.connect(ctx, endpoint)
}

func (c *Controller) handleOpen(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	// The transport is up; the session is not connected until the backend
	// pushes its session-confirmed frame.
	c.log.Debug("bridge socket open")
}

func (c *Controller) handleMessage(gen int, data []byte) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	frame, err := schema.DecodeServerFrame(data)
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("bridge frame rejected", "err", err)
		c.emit(schema.BridgeEvent{Kind: schema.EventError, Message: err.Error()})
		return
	}
	switch frame.Type {
	case schema.FrameOutput:
		c.mu.Unlock()
		c.emit(schema.BridgeEvent{Kind: schema.EventOutput, Data: frame.Data})
	case schema.FramePong:
		c.mu.Unlock()
	case schema.FrameSessionConfirmed:
		c.sessionID = frame.SessionID
		c.status = schema.StatusConnected
		stop := make(chan struct{})
		c.keepStop = stop
		sock := c.sock
		c.mu.Unlock()
		go runKeepalive(sock, c.cfg.KeepaliveInterval, stop)
		logx.WithSession(c.log, frame.SessionID).Info("bridge session connected")
		c.emit(schema.BridgeEvent{Kind: schema.EventConnected, SessionID: frame.SessionID})
		c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusConnected})
	default:
		c.mu.Unlock()
	}
}

// handleError surfaces both handshake and transport failures through the
// same error event; consumers display the message, they do not branch on
// error kinds.
func (c *Controller) handleError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.status = schema.StatusError
	c.mu.Unlock()
	c.log.Warn("bridge error", "err", err)
	c.emit(schema.BridgeEvent{Kind: schema.EventError, Message: err.Error()})
	c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusError})
}

// handleClose runs once per closed connection attempt. A close not
// preceded by an explicit Disconnect counts as unexpected; with
// auto-reconnect enabled it schedules exactly one retry after the fixed
// delay.
func (c *Controller) handleClose(ctx context.Context, gen int, code int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.stopKeepaliveLocked()
	c.sock = nil
	if c.cfg.AutoReconnect {
		c.status = schema.StatusConnecting
		c.retryTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			c.retryTimer = nil
			c.mu.Unlock()
			c.attempt(ctx, gen)
		})
		c.mu.Unlock()
		c.log.Info("bridge closed, reconnect scheduled", "code", code, "delay", c.cfg.ReconnectDelay)
		c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusConnecting})
		return
	}
	c.status = schema.StatusDisconnected
	c.mu.Unlock()
	c.log.Info("bridge closed", "code", code)
	c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusDisconnected})
}

// Disconnect tears the session down and cancels any pending retry.
// Idempotent and safe to call repeatedly.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.stopKeepaliveLocked()
	sock := c.sock
	c.sock = nil
	changed := c.status != schema.StatusDisconnected
	c.status = schema.StatusDisconnected
	c.mu.Unlock()
	if sock != nil {
		sock.close()
	}
	if changed {
		c.log.Info("bridge disconnected")
		c.emit(schema.BridgeEvent{Kind: schema.EventStatus, Status: schema.StatusDisconnected})
	}
}

// SendInput forwards keystroke bytes when connected. Not connected is a
// no-op: nothing is queued or flushed later.
func (c *Controller) SendInput(data []byte) {
	c.mu.Lock()
	sock := c.sock
	connected := c.status == schema.StatusConnected
	c.mu.Unlock()
	if !connected || sock == nil {
		c.log.Debug("bridge input dropped while not connected", "bytes", len(data))
		return
	}
	sock.send(schema.EncodeInput(data))
}

// Resize forwards new terminal dimensions when connected; no-op otherwise.
func (c *Controller) Resize(cols, rows int) {
	c.mu.Lock()
	sock := c.sock
	connected := c.status == schema.StatusConnected
	c.mu.Unlock()
	if !connected || sock == nil {
		return
	}
	frame, err := schema.EncodeResize(cols, rows)
	if err != nil {
		c.log.Warn("bridge resize encode failed", "err", err)
		return
	}
	sock.send(frame)
}

func (c *Controller) stopKeepaliveLocked() {
	if c.keepStop != nil {
		close(c.keepStop)
		c.keepStop = nil
	}
}
