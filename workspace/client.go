// Package workspace is the REST client for the workspace collaborator
// service: workspace lifecycle, files, git, and terminal-session
// bookkeeping. The service itself is opaque; this package fixes the
// request/response shapes and maps HTTP failures to typed errors.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/gitguide/schema"
	"pkt.systems/pslog"
)

// DefaultTimeout bounds each REST call. Git operations can be slow on
// large repositories, so the bound is generous.
const DefaultTimeout = 2 * time.Minute

// ClientConfig configures a workspace client.
type ClientConfig struct {
	// BaseURL is the root of the workspace service, e.g.
	// "http://127.0.0.1:27500".
	BaseURL string
	// Token is the bearer credential attached to every call.
	Token string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     pslog.Logger
}

// Client calls the workspace service.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	log     pslog.Logger
}

// NewClient validates the base URL and returns a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: base url is required", schema.ErrInvalidRequest)
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q in base url", schema.ErrInvalidRequest, baseURL.Scheme)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Client{baseURL: baseURL, token: cfg.Token, http: httpClient, log: log}, nil
}

// apiError is the service's error envelope. Bodies that are not JSON fall
// back to the raw text.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, in, out any) error {
	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(reqURL.Path, "/") + endpoint
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = res.Body.Close() }()
	c.log.Debug("workspace api call", "method", method, "endpoint", endpoint, "status", res.StatusCode, "duration_ms", time.Since(started).Milliseconds())
	if res.StatusCode >= 300 {
		return c.statusError(res, endpoint)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// statusError maps an HTTP failure to the typed sentinel it represents,
// wrapped with the service's message so errors.Is still matches.
func (c *Client) statusError(res *http.Response, endpoint string) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	var envelope apiError
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	if msg == "" {
		msg = res.Status
	}
	var sentinel error
	switch res.StatusCode {
	case http.StatusBadRequest:
		sentinel = schema.ErrInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = schema.ErrUnauthorized
	case http.StatusNotFound:
		sentinel = notFoundSentinel(endpoint)
	case http.StatusConflict:
		sentinel = schema.ErrUncommittedChanges
	}
	if sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return fmt.Errorf("%s: unexpected status %d: %s", endpoint, res.StatusCode, msg)
}

// notFoundSentinel picks the sentinel a 404 means for the given endpoint:
// file endpoints report missing files, session endpoints missing sessions,
// everything else a missing workspace.
func notFoundSentinel(endpoint string) error {
	switch {
	case strings.Contains(endpoint, "/files"):
		return schema.ErrFileNotFound
	case strings.Contains(endpoint, "/sessions"):
		return schema.ErrSessionNotFound
	default:
		return schema.ErrWorkspaceNotFound
	}
}

func workspacePath(id schema.WorkspaceID, suffix string) string {
	return "/api/workspaces/" + url.PathEscape(string(id)) + suffix
}

// Workspace lifecycle.

// CreateWorkspace provisions a workspace for the project.
func (c *Client) CreateWorkspace(ctx context.Context, projectID schema.ProjectID) (schema.WorkspaceInfo, error) {
	if projectID == "" {
		return schema.WorkspaceInfo{}, fmt.Errorf("%w: project id is required", schema.ErrInvalidRequest)
	}
	var info schema.WorkspaceInfo
	err := c.do(ctx, http.MethodPost, "/api/workspaces", nil, schema.CreateWorkspaceRequest{ProjectID: projectID}, &info)
	return info, err
}

// GetWorkspace fetches a workspace's identity and container status.
func (c *Client) GetWorkspace(ctx context.Context, id schema.WorkspaceID) (schema.WorkspaceInfo, error) {
	var info schema.WorkspaceInfo
	err := c.do(ctx, http.MethodGet, workspacePath(id, ""), nil, nil, &info)
	return info, err
}

// StartWorkspace starts a stopped workspace container.
func (c *Client) StartWorkspace(ctx context.Context, id schema.WorkspaceID) (schema.WorkspaceInfo, error) {
	var info schema.WorkspaceInfo
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/start"), nil, nil, &info)
	return info, err
}

// StopWorkspace stops a running workspace container.
func (c *Client) StopWorkspace(ctx context.Context, id schema.WorkspaceID) (schema.WorkspaceInfo, error) {
	var info schema.WorkspaceInfo
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/stop"), nil, nil, &info)
	return info, err
}

// RecreateWorkspace rebuilds the workspace container from scratch.
func (c *Client) RecreateWorkspace(ctx context.Context, id schema.WorkspaceID) (schema.WorkspaceInfo, error) {
	var info schema.WorkspaceInfo
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/recreate"), nil, nil, &info)
	return info, err
}

// File operations, all by path within the workspace.

// ListFiles lists the entries under path.
func (c *Client) ListFiles(ctx context.Context, id schema.WorkspaceID, path string) (schema.ListFilesResponse, error) {
	q := url.Values{"path": []string{path}}
	var out schema.ListFilesResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/files"), q, nil, &out)
	return out, err
}

// ReadFile fetches a file's contents.
func (c *Client) ReadFile(ctx context.Context, id schema.WorkspaceID, path string) (schema.ReadFileResponse, error) {
	q := url.Values{"path": []string{path}}
	var out schema.ReadFileResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/files/content"), q, nil, &out)
	return out, err
}

// WriteFile replaces a file's contents.
func (c *Client) WriteFile(ctx context.Context, id schema.WorkspaceID, req schema.WriteFileRequest) error {
	return c.do(ctx, http.MethodPut, workspacePath(id, "/files/content"), nil, req, nil)
}

// CreateFile creates a file or directory.
func (c *Client) CreateFile(ctx context.Context, id schema.WorkspaceID, req schema.CreateFileRequest) error {
	return c.do(ctx, http.MethodPost, workspacePath(id, "/files"), nil, req, nil)
}

// DeleteFile removes a file or directory.
func (c *Client) DeleteFile(ctx context.Context, id schema.WorkspaceID, path string) error {
	q := url.Values{"path": []string{path}}
	return c.do(ctx, http.MethodDelete, workspacePath(id, "/files"), q, nil, nil)
}

// RenameFile moves a path within the workspace.
func (c *Client) RenameFile(ctx context.Context, id schema.WorkspaceID, req schema.RenameFileRequest) error {
	return c.do(ctx, http.MethodPost, workspacePath(id, "/files/rename"), nil, req, nil)
}

// Git operations, scoped by workspace id.

// GitStatus reports the working-tree state.
func (c *Client) GitStatus(ctx context.Context, id schema.WorkspaceID) (schema.GitStatusResponse, error) {
	var out schema.GitStatusResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/git/status"), nil, nil, &out)
	return out, err
}

// GitDiff fetches the unified diff, optionally limited to one path.
func (c *Client) GitDiff(ctx context.Context, id schema.WorkspaceID, path string) (schema.GitDiffResponse, error) {
	var q url.Values
	if path != "" {
		q = url.Values{"path": []string{path}}
	}
	var out schema.GitDiffResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/git/diff"), q, nil, &out)
	return out, err
}

// GitCommit commits the staged and modified files.
func (c *Client) GitCommit(ctx context.Context, id schema.WorkspaceID, message string) (schema.GitCommitResponse, error) {
	if strings.TrimSpace(message) == "" {
		return schema.GitCommitResponse{}, fmt.Errorf("%w: commit message is required", schema.ErrInvalidRequest)
	}
	var out schema.GitCommitResponse
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/git/commit"), nil, schema.GitCommitRequest{Message: message}, &out)
	return out, err
}

// GitPull pulls from the remote. A conflicting working tree surfaces as
// schema.ErrUncommittedChanges; the caller picks a resolution and retries.
func (c *Client) GitPull(ctx context.Context, id schema.WorkspaceID, resolution schema.PullResolution) (schema.GitPullResponse, error) {
	var out schema.GitPullResponse
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/git/pull"), nil, schema.GitPullRequest{Resolution: resolution}, &out)
	return out, err
}

// GitPush pushes local commits to the remote.
func (c *Client) GitPush(ctx context.Context, id schema.WorkspaceID) (schema.GitPushResponse, error) {
	var out schema.GitPushResponse
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/git/push"), nil, nil, &out)
	return out, err
}

// GitCommits fetches the local commit log.
func (c *Client) GitCommits(ctx context.Context, id schema.WorkspaceID) (schema.GitCommitsResponse, error) {
	var out schema.GitCommitsResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/git/commits"), nil, nil, &out)
	return out, err
}

// GitExternalCommits reports remote commits not yet in the workspace clone.
func (c *Client) GitExternalCommits(ctx context.Context, id schema.WorkspaceID) (schema.GitExternalCommitsResponse, error) {
	var out schema.GitExternalCommitsResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/git/external-commits"), nil, nil, &out)
	return out, err
}

// GitReset resets the working tree, optionally hard to a specific commit.
func (c *Client) GitReset(ctx context.Context, id schema.WorkspaceID, req schema.GitResetRequest) error {
	return c.do(ctx, http.MethodPost, workspacePath(id, "/git/reset"), nil, req, nil)
}

// Terminal session bookkeeping.

// CreateSession registers a named session on the workspace.
func (c *Client) CreateSession(ctx context.Context, id schema.WorkspaceID, name schema.SessionName) (schema.TerminalSessionInfo, error) {
	var out schema.TerminalSessionInfo
	err := c.do(ctx, http.MethodPost, workspacePath(id, "/sessions"), nil, schema.CreateSessionRequest{Name: name}, &out)
	return out, err
}

// ListSessions lists the workspace's registered sessions.
func (c *Client) ListSessions(ctx context.Context, id schema.WorkspaceID) (schema.ListSessionsResponse, error) {
	var out schema.ListSessionsResponse
	err := c.do(ctx, http.MethodGet, workspacePath(id, "/sessions"), nil, nil, &out)
	return out, err
}

// DeleteSession removes a registered session.
func (c *Client) DeleteSession(ctx context.Context, id schema.WorkspaceID, sessionID schema.SessionID) error {
	return c.do(ctx, http.MethodDelete, workspacePath(id, "/sessions/"+url.PathEscape(string(sessionID))), nil, nil, nil)
}
