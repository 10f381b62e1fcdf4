package term

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"pkt.systems/gitguide/schema"
)

// sessionEndpoint builds the workspace- and session-scoped WebSocket URL.
// Session creation is bound to the URL itself: a request without session_id
// makes the backend spawn a fresh shell and push a session-confirmed frame,
// while reattachment passes the retained session_id so the backend binds
// the same shell instead of spawning a new one. The bearer credential
// travels as a query parameter at establishment time, not per frame.
func sessionEndpoint(baseURL string, workspaceID schema.WorkspaceID, sessionID schema.SessionID, token string) (string, error) {
	if workspaceID == "" {
		return "", fmt.Errorf("workspace id is required")
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/workspaces/" + url.PathEscape(string(workspaceID)) + "/terminal"
	q := u.Query()
	if sessionID != "" {
		q.Set("session_id", string(sessionID))
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// runKeepalive sends fire-and-forget pings until stop closes. No
// application-level reply is expected; transport liveness is sufficient.
func runKeepalive(sock *socket, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sock.send(schema.EncodePing())
		case <-stop:
			return
		}
	}
}
