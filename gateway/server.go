// Package gateway is the thin proxy in front of the workspace service: it
// forwards REST calls upstream unchanged and bridges terminal WebSocket
// connections by dialing the upstream socket and pumping frames both ways.
// Bearer credentials pass through; the gateway adds request ids and
// structured logs, nothing else.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"
)

// Server proxies REST and terminal traffic to the workspace service.
type Server struct {
	cfg      Config
	upstream *url.URL
	proxy    *httputil.ReverseProxy
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	basePath string
}

// NewServer validates the upstream URL and constructs a gateway.
func NewServer(cfg Config) (*Server, error) {
	raw := strings.TrimSpace(cfg.UpstreamURL)
	if raw == "" {
		return nil, fmt.Errorf("gateway upstream url is required")
	}
	upstream, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in upstream url", upstream.Scheme)
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		pslog.Ctx(r.Context()).Warn("gateway upstream error", "path", r.URL.Path, "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return &Server{
		cfg:      cfg,
		upstream: upstream,
		proxy:    proxy,
		upgrader: websocket.Upgrader{
			// The gateway fronts a trusted upstream; origin policy is the
			// caller's concern.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dialer:   websocket.DefaultDialer,
		basePath: normalizeBasePath(cfg.BasePath),
	}, nil
}

// Handler returns the gateway's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/", s.handleAPI)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if isTerminalPath(r.URL.Path) && websocket.IsWebSocketUpgrade(r) {
		s.handleTerminal(w, r)
		return
	}
	s.proxy.ServeHTTP(w, r)
}

// isTerminalPath matches /api/workspaces/{id}/terminal.
func isTerminalPath(path string) bool {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return len(parts) == 4 && parts[0] == "api" && parts[1] == "workspaces" && parts[2] != "" && parts[3] == "terminal"
}

// handleTerminal dials the upstream socket first, then upgrades the client
// side, so a refused upstream still gets an HTTP error response instead of
// a dead WebSocket.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	log := pslog.Ctx(r.Context()).With("path", r.URL.Path, "request_id", r.Header.Get("X-Request-Id"))

	upURL := *s.upstream
	switch upURL.Scheme {
	case "http":
		upURL.Scheme = "ws"
	case "https":
		upURL.Scheme = "wss"
	}
	upURL.Path = strings.TrimRight(upURL.Path, "/") + r.URL.Path
	upURL.RawQuery = r.URL.RawQuery

	header := http.Header{}
	if auth := r.Header.Get("Authorization"); auth != "" {
		header.Set("Authorization", auth)
	}
	if requestID := r.Header.Get("X-Request-Id"); requestID != "" {
		header.Set("X-Request-Id", requestID)
	}

	upstream, res, err := s.dialer.DialContext(r.Context(), upURL.String(), header)
	if err != nil {
		status := http.StatusBadGateway
		if res != nil {
			status = res.StatusCode
		}
		log.Warn("terminal upstream dial failed", "status", status, "err", err)
		http.Error(w, "upstream unavailable", status)
		return
	}

	client, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = upstream.Close()
		log.Warn("terminal client upgrade failed", "err", err)
		return
	}
	log.Info("terminal bridge established")

	errs := make(chan error, 2)
	go func() { errs <- pump(upstream, client) }()
	go func() { errs <- pump(client, upstream) }()
	err = <-errs
	_ = client.Close()
	_ = upstream.Close()
	<-errs
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("terminal bridge closed", "err", err)
		return
	}
	log.Info("terminal bridge closed")
}

// pump copies messages from src to dst until either side fails.
func pump(dst, src *websocket.Conn) error {
	for {
		msgType, msg, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(msgType, msg); err != nil {
			return err
		}
	}
}
