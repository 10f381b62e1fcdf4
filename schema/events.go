package schema

// BridgeEventKind names the event kinds a terminal bridge delivers to its
// consumer.
type BridgeEventKind string

const (
	// EventOutput carries remote output bytes for the emulator.
	EventOutput BridgeEventKind = "output"
	// EventConnected reports a negotiated session binding.
	EventConnected BridgeEventKind = "connected"
	// EventStatus reports a connection status change.
	EventStatus BridgeEventKind = "status"
	// EventError reports a human-readable failure message.
	EventError BridgeEventKind = "error"
)

// BridgeEvent is the single discriminated event type delivered through one
// callback per tab, so ordering between event kinds is well defined.
type BridgeEvent struct {
	Kind      BridgeEventKind
	Data      []byte     // EventOutput
	SessionID SessionID  // EventConnected
	Status    ConnStatus // EventStatus
	Message   string     // EventError
}
