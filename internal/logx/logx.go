// Package logx carries pslog loggers annotated with workspace, tab, and
// session identifiers.
package logx

import (
	"context"

	"pkt.systems/gitguide/schema"
	"pkt.systems/pslog"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithWorkspace annotates the logger with the workspace id if present.
func WithWorkspace(log pslog.Logger, workspaceID schema.WorkspaceID) pslog.Logger {
	if workspaceID != "" {
		log = log.With("workspace", workspaceID)
	}
	return log
}

// WithTab annotates the logger with a tab id if present.
func WithTab(log pslog.Logger, tabID schema.TabID) pslog.Logger {
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	return log
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID schema.SessionID) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}
