package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidFrame indicates a wire frame that could not be decoded.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrUnauthorized indicates the bearer credential was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrWorkspaceNotFound indicates the workspace does not exist.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrSessionNotFound indicates the terminal session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFileNotFound indicates a workspace file path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrLastTab indicates an attempt to close the only remaining tab.
	ErrLastTab = errors.New("cannot close the last tab")
	// ErrUncommittedChanges indicates a pull was refused because the
	// working tree has uncommitted changes.
	ErrUncommittedChanges = errors.New("uncommitted changes")
	// ErrNotConnected indicates an operation that requires a live session.
	ErrNotConnected = errors.New("not connected")
)
