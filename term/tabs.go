package term

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/gitguide/internal/logx"
	"pkt.systems/gitguide/schema"
	"pkt.systems/pslog"
)

// ManagerConfig configures a tab manager for one workspace. The workspace
// id and token fetcher are the only resources shared across tabs; each tab
// owns its adapter, controller, and connection end to end.
type ManagerConfig struct {
	BaseURL           string
	WorkspaceID       schema.WorkspaceID
	FetchToken        TokenFunc
	ReconnectDelay    time.Duration
	KeepaliveInterval time.Duration
	AutoReconnect     bool
	SettleDelay       time.Duration
	Dialer            *websocket.Dialer
	Logger            pslog.Logger
	// NewEmulator builds the emulator for each new tab. Defaults to
	// NewScreenEmulator.
	NewEmulator func() Emulator
}

type tabEntry struct {
	id        schema.TabID
	name      schema.TabName
	sessionID schema.SessionID
	adapter   *Adapter
}

// Manager multiplexes terminal tabs for one workspace: it routes create,
// close, activate, and layout actions to the owning adapter, and keeps at
// least one tab open at all times.
type Manager struct {
	cfg      ManagerConfig
	log      pslog.Logger
	consumer func(schema.TabID, schema.BridgeEvent)

	mu      sync.Mutex
	tabs    map[schema.TabID]*tabEntry
	order   []schema.TabID
	active  schema.TabID
	nextTab int
	closed  bool
}

// NewManager constructs a manager and auto-creates the first tab, so a
// freshly opened workspace always exposes a terminal.
func NewManager(ctx context.Context, cfg ManagerConfig, consumer func(schema.TabID, schema.BridgeEvent)) (*Manager, error) {
	if cfg.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace id is required", schema.ErrInvalidRequest)
	}
	if cfg.NewEmulator == nil {
		cfg.NewEmulator = func() Emulator { return NewScreenEmulator() }
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = logx.WithWorkspace(log, cfg.WorkspaceID)
	m := &Manager{
		cfg:      cfg,
		log:      log,
		consumer: consumer,
		tabs:     map[schema.TabID]*tabEntry{},
	}
	if _, err := m.CreateTab(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateTab appends a tab with a fresh locally-unique id and a sequential
// display name, and makes it the active tab.
func (m *Manager) CreateTab(ctx context.Context) (schema.TabSnapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return schema.TabSnapshot{}, fmt.Errorf("%w: manager closed", schema.ErrInvalidRequest)
	}
	m.nextTab++
	id := schema.TabID(strconv.Itoa(m.nextTab))
	name := schema.TabName("Terminal")
	if m.nextTab > 1 {
		name = schema.TabName(fmt.Sprintf("Terminal %d", m.nextTab))
	}
	entry := &tabEntry{id: id, name: name}
	entry.adapter = NewAdapter(AdapterConfig{
		BaseURL:           m.cfg.BaseURL,
		WorkspaceID:       m.cfg.WorkspaceID,
		FetchToken:        m.cfg.FetchToken,
		ReconnectDelay:    m.cfg.ReconnectDelay,
		KeepaliveInterval: m.cfg.KeepaliveInterval,
		AutoReconnect:     m.cfg.AutoReconnect,
		SettleDelay:       m.cfg.SettleDelay,
		Dialer:            m.cfg.Dialer,
		Logger:            m.cfg.Logger,
	}, m.cfg.NewEmulator(), func(ev schema.BridgeEvent) { m.handleTabEvent(id, ev) })
	m.tabs[id] = entry
	m.order = append(m.order, id)
	var prevAdapter *Adapter
	if prev, ok := m.tabs[m.active]; ok && m.active != id {
		prevAdapter = prev.adapter
	}
	m.active = id
	snap := m.snapshotLocked(entry)
	m.mu.Unlock()
	if prevAdapter != nil {
		prevAdapter.SetActive(ctx, false)
	}
	entry.adapter.SetActive(ctx, true)
	logx.WithTab(m.log, id).Info("terminal tab created", "name", name)
	return snap, nil
}

// CloseTab removes the tab and tears down its adapter and session. Closing
// the last remaining tab is refused: a workspace must always expose at
// least one terminal. If the closed tab was active, the most recently
// remaining tab becomes active.
func (m *Manager) CloseTab(ctx context.Context, id schema.TabID) error {
	m.mu.Lock()
	entry, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return schema.ErrTabNotFound
	}
	if len(m.order) <= 1 {
		m.mu.Unlock()
		return schema.ErrLastTab
	}
	delete(m.tabs, id)
	for i, tabID := range m.order {
		if tabID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	var activate *Adapter
	if m.active == id {
		m.active = m.order[len(m.order)-1]
		activate = m.tabs[m.active].adapter
	}
	m.mu.Unlock()
	_ = entry.adapter.Close()
	if activate != nil {
		activate.SetActive(ctx, true)
	}
	logx.WithTab(m.log, id).Info("terminal tab closed")
	return nil
}

// SetActiveTab switches which tab is rendered. The other tabs' adapters
// stay connected and keep buffering output into their hidden emulators;
// switching away and back never reconnects or renegotiates.
func (m *Manager) SetActiveTab(ctx context.Context, id schema.TabID) error {
	m.mu.Lock()
	entry, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return schema.ErrTabNotFound
	}
	if m.active == id {
		m.mu.Unlock()
		return nil
	}
	prev := m.tabs[m.active]
	m.active = id
	m.mu.Unlock()
	if prev != nil {
		prev.adapter.SetActive(ctx, false)
	}
	entry.adapter.SetActive(ctx, true)
	logx.WithTab(m.log, id).Info("terminal tab activated")
	return nil
}

// ObserveLayout forwards a layout observation to the active tab's adapter.
func (m *Manager) ObserveLayout(ctx context.Context) {
	m.mu.Lock()
	entry := m.tabs[m.active]
	m.mu.Unlock()
	if entry != nil {
		entry.adapter.ObserveLayout(ctx)
	}
}

// Tabs reports snapshots of all tabs in creation order.
func (m *Manager) Tabs() []schema.TabSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := make([]schema.TabSnapshot, 0, len(m.order))
	for _, id := range m.order {
		snaps = append(snaps, m.snapshotLocked(m.tabs[id]))
	}
	return snaps
}

// ActiveTab reports the id of the active tab.
func (m *Manager) ActiveTab() schema.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// handleTabEvent records newly negotiated session ids on the tab record.
// The recorded id serves display and debugging only; reattachment uses the
// adapter's own retained session id.
func (m *Manager) handleTabEvent(id schema.TabID, ev schema.BridgeEvent) {
	if ev.Kind == schema.EventConnected {
		m.mu.Lock()
		if entry, ok := m.tabs[id]; ok {
			entry.sessionID = ev.SessionID
		}
		m.mu.Unlock()
	}
	if m.consumer != nil {
		m.consumer(id, ev)
	}
}

func (m *Manager) snapshotLocked(entry *tabEntry) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:        entry.id,
		Name:      entry.name,
		SessionID: entry.sessionID,
		Status:    entry.adapter.Status(),
		Active:    entry.id == m.active,
	}
}

// Close tears down every tab.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	entries := make([]*tabEntry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, m.tabs[id])
	}
	m.tabs = map[schema.TabID]*tabEntry{}
	m.order = nil
	m.active = ""
	m.mu.Unlock()
	for _, entry := range entries {
		_ = entry.adapter.Close()
	}
	return nil
}
