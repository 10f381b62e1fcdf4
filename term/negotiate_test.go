package term

import (
	"strings"
	"testing"

	"pkt.systems/gitguide/schema"
)

func TestSessionEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		workspace string
		session   string
		token     string
		want      string
		wantErr   string
	}{
		{
			name:      "http becomes ws",
			baseURL:   "http://backend:27500",
			workspace: "ws-1",
			want:      "ws://backend:27500/api/workspaces/ws-1/terminal",
		},
		{
			name:      "https becomes wss",
			baseURL:   "https://backend",
			workspace: "ws-1",
			want:      "wss://backend/api/workspaces/ws-1/terminal",
		},
		{
			name:      "ws passes through",
			baseURL:   "ws://backend",
			workspace: "ws-1",
			want:      "ws://backend/api/workspaces/ws-1/terminal",
		},
		{
			name:      "base path preserved",
			baseURL:   "http://backend/bridge/",
			workspace: "ws-1",
			want:      "ws://backend/bridge/api/workspaces/ws-1/terminal",
		},
		{
			name:      "token and session id as query params",
			baseURL:   "http://backend",
			workspace: "ws-1",
			session:   "sess-42",
			token:     "tok",
			want:      "ws://backend/api/workspaces/ws-1/terminal?session_id=sess-42&token=tok",
		},
		{
			name:      "fresh connection omits session id",
			baseURL:   "http://backend",
			workspace: "ws-1",
			token:     "tok",
			want:      "ws://backend/api/workspaces/ws-1/terminal?token=tok",
		},
		{
			name:      "workspace id path escaped",
			baseURL:   "http://backend",
			workspace: "ws/evil",
			want:      "ws://backend/api/workspaces/ws%2Fevil/terminal",
		},
		{
			name:    "missing workspace id",
			baseURL: "http://backend",
			wantErr: "workspace id",
		},
		{
			name:      "unsupported scheme",
			baseURL:   "ftp://backend",
			workspace: "ws-1",
			wantErr:   "unsupported scheme",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sessionEndpoint(tc.baseURL, schema.WorkspaceID(tc.workspace), schema.SessionID(tc.session), tc.token)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("endpoint mismatch:\n got %q\nwant %q", got, tc.want)
			}
		})
	}
}
