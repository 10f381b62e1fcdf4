package schema

import "time"

// Workspace lifecycle.

// CreateWorkspaceRequest describes a request to provision a workspace for a
// project.
type CreateWorkspaceRequest struct {
	ProjectID ProjectID `json:"project_id"`
}

// WorkspaceInfo reports a workspace identity and container status.
type WorkspaceInfo struct {
	ID        WorkspaceID     `json:"id"`
	ProjectID ProjectID       `json:"project_id"`
	Status    WorkspaceStatus `json:"status"`
}

// File operations.

// FileEntry describes one entry in a workspace directory listing.
type FileEntry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// ListFilesResponse reports the entries under a workspace path.
type ListFilesResponse struct {
	Entries []FileEntry `json:"entries"`
}

// ReadFileResponse reports a file's contents.
type ReadFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileRequest describes a request to write file contents.
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CreateFileRequest describes a request to create a file or directory.
type CreateFileRequest struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir,omitempty"`
}

// RenameFileRequest describes a request to rename a path.
type RenameFileRequest struct {
	Path    string `json:"path"`
	NewPath string `json:"new_path"`
}

// Git operations, all scoped by workspace id.

// GitStatusResponse reports the working-tree state.
type GitStatusResponse struct {
	Branch    string   `json:"branch"`
	Ahead     int      `json:"ahead"`
	Behind    int      `json:"behind"`
	Staged    []string `json:"staged,omitempty"`
	Modified  []string `json:"modified,omitempty"`
	Untracked []string `json:"untracked,omitempty"`
	Clean     bool     `json:"clean"`
}

// GitDiffResponse reports a unified diff.
type GitDiffResponse struct {
	Diff string `json:"diff"`
}

// GitCommitRequest describes a request to commit staged and modified files.
type GitCommitRequest struct {
	Message string `json:"message"`
}

// CommitInfo describes one commit in a log listing.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// GitCommitResponse reports the created commit.
type GitCommitResponse struct {
	Commit CommitInfo `json:"commit"`
}

// GitPullRequest describes a pull attempt. Resolution is empty on the first
// attempt; after an uncommitted-changes conflict the caller retries with a
// chosen resolution.
type GitPullRequest struct {
	Resolution PullResolution `json:"resolution,omitempty"`
}

// GitPullResponse reports the pull result.
type GitPullResponse struct {
	UpdatedFiles    []string `json:"updated_files,omitempty"`
	AlreadyUpToDate bool     `json:"already_up_to_date,omitempty"`
}

// GitPushResponse reports the push result.
type GitPushResponse struct {
	PushedCommits int `json:"pushed_commits"`
}

// GitCommitsResponse reports the commit log.
type GitCommitsResponse struct {
	Commits []CommitInfo `json:"commits"`
}

// GitExternalCommitsResponse reports commits on the remote that are not yet
// in the workspace clone.
type GitExternalCommitsResponse struct {
	HasExternal bool         `json:"has_external"`
	Commits     []CommitInfo `json:"commits,omitempty"`
}

// GitResetRequest describes a request to reset the working tree.
type GitResetRequest struct {
	Hash string `json:"hash,omitempty"`
	Hard bool   `json:"hard,omitempty"`
}

// Terminal session bookkeeping, layered above the socket protocol.

// CreateSessionRequest describes a request to create a named session.
type CreateSessionRequest struct {
	Name SessionName `json:"name"`
}

// TerminalSessionInfo reports one bookkept session.
type TerminalSessionInfo struct {
	SessionID   SessionID   `json:"session_id"`
	WorkspaceID WorkspaceID `json:"workspace_id"`
	Name        SessionName `json:"name"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ListSessionsResponse reports a workspace's bookkept sessions.
type ListSessionsResponse struct {
	Sessions []TerminalSessionInfo `json:"sessions"`
}
