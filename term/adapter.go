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

// DefaultSettleDelay is the wait before refitting a freshly activated tab,
// giving the surrounding layout time to settle.
const DefaultSettleDelay = 50 * time.Millisecond

// TokenFunc fetches a fresh bearer credential for a connection attempt.
type TokenFunc func(ctx context.Context) (string, error)

// AdapterConfig configures a terminal adapter.
type AdapterConfig struct {
	BaseURL           string
	WorkspaceID       schema.WorkspaceID
	FetchToken        TokenFunc
	ReconnectDelay    time.Duration
	KeepaliveInterval time.Duration
	AutoReconnect     bool
	// SettleDelay delays the refit after activation. Zero selects
	// DefaultSettleDelay; negative refits immediately.
	SettleDelay time.Duration
	Dialer      *websocket.Dialer
	Logger      pslog.Logger
}

// Adapter binds an Emulator to a session controller. Construction is
// cheap; the binding initializes on the first layout observation with
// nonzero emulator dimensions, fetches a token once, and connects only
// when both emulator and token are ready.
type Adapter struct {
	cfg      AdapterConfig
	emu      Emulator
	consumer func(schema.BridgeEvent)
	log      pslog.Logger

	mu          sync.Mutex
	ctrl        *Controller
	initialized bool
	active      bool
	closed      bool
	unsubInput  func()
	unsubResize func()
	settleTimer *time.Timer
}

// NewAdapter constructs an adapter around an emulator. consumer receives
// every bridge event after the adapter has applied it; it may be nil.
func NewAdapter(cfg AdapterConfig, emu Emulator, consumer func(schema.BridgeEvent)) *Adapter {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = logx.WithWorkspace(log, cfg.WorkspaceID)
	return &Adapter{cfg: cfg, emu: emu, consumer: consumer, log: log}
}

// ObserveLayout is invoked on every layout or visibility observation.
// Initialization is deferred until the emulator reports nonzero
// dimensions; once it succeeds the adapter never reinitializes.
func (a *Adapter) ObserveLayout(ctx context.Context) {
	a.mu.Lock()
	if a.closed || a.initialized {
		a.mu.Unlock()
		return
	}
	if _, _, ok := a.emu.Size(); !ok {
		a.mu.Unlock()
		return
	}
	a.initialized = true
	a.unsubInput = a.emu.OnInput(a.forwardInput)
	a.unsubResize = a.emu.OnResize(a.forwardResize)
	a.mu.Unlock()
	a.log.Debug("terminal emulator ready")
	go a.fetchTokenAndConnect(ctx)
}

// Token acquisition is deliberately lazy: fetched once, after the emulator
// is ready, so its lifetime cannot expire before use. Connect fires only
// when both emulator and token are ready. A fetch failure terminates the
// attempt and paints the error inline in the terminal, since no structured
// error channel exists toward the user at that point.
func (a *Adapter) fetchTokenAndConnect(ctx context.Context) {
	token := ""
	if a.cfg.FetchToken != nil {
		tok, err := a.cfg.FetchToken(ctx)
		if err != nil {
			a.log.Warn("terminal token fetch failed", "err", err)
			_, _ = a.emu.Write(errorLine("authentication failed: " + err.Error()))
			a.deliver(schema.BridgeEvent{Kind: schema.EventError, Message: err.Error()})
			return
		}
		token = tok
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	ctrl := NewController(ControllerConfig{
		BaseURL:           a.cfg.BaseURL,
		WorkspaceID:       a.cfg.WorkspaceID,
		Token:             token,
		ReconnectDelay:    a.cfg.ReconnectDelay,
		KeepaliveInterval: a.cfg.KeepaliveInterval,
		AutoReconnect:     a.cfg.AutoReconnect,
		Dialer:            a.cfg.Dialer,
		Logger:            a.cfg.Logger,
	}, a.deliver)
	a.ctrl = ctrl
	a.mu.Unlock()
	ctrl.Connect(ctx)
}

// deliver applies output to the emulator in arrival order, then forwards
// the event to the consumer.
func (a *Adapter) deliver(ev schema.BridgeEvent) {
	if ev.Kind == schema.EventOutput {
		_, _ = a.emu.Write(ev.Data)
	}
	if a.consumer != nil {
		a.consumer(ev)
	}
}

// Keystrokes are forwarded verbatim, with no local echo: the screen only
// ever shows what the remote process produced.
func (a *Adapter) forwardInput(data []byte) {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		return
	}
	ctrl.SendInput(data)
}

// forwardResize propagates fit results while the tab is visible. Inactive
// tabs have no layout to fit to; their refit happens on activation.
func (a *Adapter) forwardResize(cols, rows int) {
	a.mu.Lock()
	ctrl := a.ctrl
	active := a.active
	a.mu.Unlock()
	if !active || ctrl == nil {
		return
	}
	ctrl.Resize(cols, rows)
}

// SetActive switches tab visibility. Activation re-attempts deferred
// initialization and refits after the settle delay, sending exactly one
// resize frame with the current dimensions.
func (a *Adapter) SetActive(ctx context.Context, active bool) {
	a.mu.Lock()
	if a.closed || a.active == active {
		a.mu.Unlock()
		return
	}
	a.active = active
	if a.settleTimer != nil {
		a.settleTimer.Stop()
		a.settleTimer = nil
	}
	if !active {
		a.mu.Unlock()
		return
	}
	delay := a.cfg.SettleDelay
	a.mu.Unlock()
	a.ObserveLayout(ctx)
	if delay < 0 {
		a.refit()
		return
	}
	a.mu.Lock()
	if !a.closed {
		a.settleTimer = time.AfterFunc(delay, a.refit)
	}
	a.mu.Unlock()
}

func (a *Adapter) refit() {
	a.mu.Lock()
	ctrl := a.ctrl
	ok := a.active && !a.closed
	a.mu.Unlock()
	if !ok || ctrl == nil {
		return
	}
	if cols, rows, sized := a.emu.Size(); sized {
		ctrl.Resize(cols, rows)
	}
}

// Status reports the underlying connection status.
func (a *Adapter) Status() schema.ConnStatus {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		return schema.StatusDisconnected
	}
	return ctrl.Status()
}

// SessionID reports the negotiated session id, empty until negotiated.
func (a *Adapter) SessionID() schema.SessionID {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		return ""
	}
	return ctrl.SessionID()
}

// Close disconnects the controller, removes the emulator listeners
// explicitly, then disposes the emulator. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	if a.settleTimer != nil {
		a.settleTimer.Stop()
		a.settleTimer = nil
	}
	ctrl := a.ctrl
	unsubInput, unsubResize := a.unsubInput, a.unsubResize
	a.unsubInput, a.unsubResize = nil, nil
	a.mu.Unlock()
	if ctrl != nil {
		ctrl.Disconnect()
	}
	if unsubInput != nil {
		unsubInput()
	}
	if unsubResize != nil {
		unsubResize()
	}
	return a.emu.Close()
}
