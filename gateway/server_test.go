package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newGateway(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Config{Addr: ":0", UpstreamURL: upstreamURL})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	gw := httptest.NewServer(srv.Handler())
	t.Cleanup(gw.Close)
	return gw
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatalf("expected error for missing upstream")
	}
	if _, err := NewServer(Config{UpstreamURL: "ftp://x"}); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestGatewayForwardsREST(t *testing.T) {
	var gotAuth, gotRequestID string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		if r.URL.Path != "/api/workspaces/ws-1/git/status" {
			t.Errorf("unexpected upstream path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"branch": "main"})
	}))
	defer upstream.Close()
	gw := newGateway(t, upstream.URL)

	req, _ := http.NewRequest(http.MethodGet, gw.URL+"/api/workspaces/ws-1/git/status", nil)
	req.Header.Set("Authorization", "Bearer tok")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "main") {
		t.Fatalf("unexpected body %q", body)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("bearer credential not forwarded, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatalf("expected a request id forwarded upstream")
	}
	if res.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id on the response")
	}
}

func TestGatewayUpstreamDown(t *testing.T) {
	gw := newGateway(t, "http://127.0.0.1:1")

	res, err := http.Get(gw.URL + "/api/workspaces/ws-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
}

func TestGatewayBridgesTerminal(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/workspaces/ws-1/terminal" {
			t.Errorf("unexpected upstream path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upstream upgrade: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	}))
	defer upstream.Close()
	gw := newGateway(t, upstream.URL)

	wsURL := "ws" + strings.TrimPrefix(gw.URL, "http") + "/api/workspaces/ws-1/terminal?session_id=sess-42&token=tok"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial gateway: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.WriteMessage(websocket.BinaryMessage, []byte("1ls")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "echo:1ls" {
		t.Fatalf("unexpected bridged message %q", msg)
	}
	if gotQuery.Get("session_id") != "sess-42" || gotQuery.Get("token") != "tok" {
		t.Fatalf("query parameters not forwarded: %v", gotQuery)
	}
}

func TestGatewayTerminalUpstreamRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workspace stopped", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()
	gw := newGateway(t, upstream.URL)

	wsURL := "ws" + strings.TrimPrefix(gw.URL, "http") + "/api/workspaces/ws-1/terminal"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if res == nil || res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected upstream status passed through, got %+v", res)
	}
}

func TestGatewayHealth(t *testing.T) {
	gw := newGateway(t, "http://127.0.0.1:1")
	res, err := http.Get(gw.URL + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
}

func TestIsTerminalPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/workspaces/ws-1/terminal", true},
		{"/api/workspaces/ws-1/terminal/", true},
		{"/api/workspaces/ws-1/git/status", false},
		{"/api/workspaces//terminal", false},
		{"/api/workspaces", false},
		{"/healthz", false},
	}
	for _, tc := range tests {
		if got := isTerminalPath(tc.path); got != tc.want {
			t.Fatalf("isTerminalPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestRedactQuery(t *testing.T) {
	got := redactQuery(url.Values{"token": []string{"secret"}, "session_id": []string{"sess-42"}})
	if strings.Contains(got, "secret") {
		t.Fatalf("token leaked into log path: %q", got)
	}
	if !strings.Contains(got, "sess-42") {
		t.Fatalf("non-credential parameters must survive: %q", got)
	}
}
