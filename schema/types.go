package schema

// WorkspaceID identifies a remote workspace container.
type WorkspaceID string

// ProjectID identifies the project a workspace belongs to.
type ProjectID string

// SessionID identifies a negotiated remote shell session. It is assigned by
// the backend during negotiation and is empty until then.
type SessionID string

// TabID identifies a terminal tab. Locally generated, stable for the tab's
// lifetime.
type TabID string

// TabName is the user-facing label of a tab.
type TabName string

// SessionName is the user-facing label of a bookkept terminal session.
type SessionName string

// ConnStatus is the simplified connection status surfaced to consumers.
type ConnStatus string

const (
	// StatusDisconnected indicates no connection and no pending attempt.
	StatusDisconnected ConnStatus = "disconnected"
	// StatusConnecting indicates a connection or negotiation attempt is in flight.
	StatusConnecting ConnStatus = "connecting"
	// StatusConnected indicates the session is negotiated and live.
	StatusConnected ConnStatus = "connected"
	// StatusError indicates the last attempt failed.
	StatusError ConnStatus = "error"
)

// TabSnapshot is a read-only view of tab state for transports and UIs.
type TabSnapshot struct {
	ID        TabID
	Name      TabName
	SessionID SessionID
	Status    ConnStatus
	Active    bool
}

// WorkspaceStatus describes the container state reported by the workspace
// service.
type WorkspaceStatus string

const (
	// WorkspaceCreating indicates the container is being provisioned.
	WorkspaceCreating WorkspaceStatus = "creating"
	// WorkspaceRunning indicates the container is up.
	WorkspaceRunning WorkspaceStatus = "running"
	// WorkspaceStopped indicates the container is stopped.
	WorkspaceStopped WorkspaceStatus = "stopped"
	// WorkspaceError indicates the container is in a failed state.
	WorkspaceError WorkspaceStatus = "error"
)

// PullResolution names the user's choice when a pull hits uncommitted local
// changes.
type PullResolution string

const (
	// ResolveCommit commits local changes before pulling.
	ResolveCommit PullResolution = "commit"
	// ResolveStash stashes local changes before pulling.
	ResolveStash PullResolution = "stash"
	// ResolveDiscard discards local changes before pulling.
	ResolveDiscard PullResolution = "discard"
	// ResolveCancel aborts the pull.
	ResolveCancel PullResolution = "cancel"
)
