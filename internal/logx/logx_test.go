package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithSessionAddsField(t *testing.T) {
	capture := &logCapture{}
	log := WithSession(newCaptureLogger(capture), "sess-42")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "sess-42" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestWithSessionEmptyIsNoop(t *testing.T) {
	capture := &logCapture{}
	log := WithSession(newCaptureLogger(capture), "")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["session"]; ok {
		t.Fatalf("did not expect session field, got %+v", entry)
	}
}

func TestWithWorkspaceAndTabAddFields(t *testing.T) {
	capture := &logCapture{}
	log := WithTab(WithWorkspace(newCaptureLogger(capture), "ws-1"), "1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["workspace"] != "ws-1" {
		t.Fatalf("expected workspace field, got %+v", entry)
	}
	if entry["tab"] != "1" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
