package schema

import (
	"errors"
	"testing"
)

func TestEncodeInputPrefix(t *testing.T) {
	msg := EncodeInput([]byte("ls\n"))
	if msg[0] != FrameInput {
		t.Fatalf("expected input prefix %q, got %q", FrameInput, msg[0])
	}
	if string(msg[1:]) != "ls\n" {
		t.Fatalf("expected payload %q, got %q", "ls\n", string(msg[1:]))
	}
}

func TestEncodeResizeRoundTrip(t *testing.T) {
	msg, err := EncodeResize(120, 40)
	if err != nil {
		t.Fatalf("encode resize: %v", err)
	}
	frame, err := DecodeClientFrame(msg)
	if err != nil {
		t.Fatalf("decode resize: %v", err)
	}
	if frame.Type != FrameResize {
		t.Fatalf("expected resize frame, got %q", frame.Type)
	}
	if frame.Resize.Cols != 120 || frame.Resize.Rows != 40 {
		t.Fatalf("unexpected dimensions: %+v", frame.Resize)
	}
}

func TestDecodeSessionConfirmed(t *testing.T) {
	msg, err := EncodeSessionConfirmed("sess-42")
	if err != nil {
		t.Fatalf("encode session confirmed: %v", err)
	}
	frame, err := DecodeServerFrame(msg)
	if err != nil {
		t.Fatalf("decode session confirmed: %v", err)
	}
	if frame.SessionID != "sess-42" {
		t.Fatalf("expected session id %q, got %q", "sess-42", frame.SessionID)
	}
}

func TestDecodeSessionConfirmedRequiresID(t *testing.T) {
	msg := append([]byte{FrameSessionConfirmed}, []byte(`{}`)...)
	if _, err := DecodeServerFrame(msg); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestDecodeRejectsEmptyAndUnknown(t *testing.T) {
	if _, err := DecodeServerFrame(nil); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for empty message, got %v", err)
	}
	if _, err := DecodeServerFrame([]byte{'9'}); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for unknown type, got %v", err)
	}
	if _, err := DecodeClientFrame([]byte{'9'}); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for unknown client type, got %v", err)
	}
}

func TestOutputPayloadVerbatim(t *testing.T) {
	payload := []byte("\x1b[31mred\x1b[0m\r\n")
	frame, err := DecodeServerFrame(EncodeOutput(payload))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if string(frame.Data) != string(payload) {
		t.Fatalf("payload altered: %q != %q", frame.Data, payload)
	}
}
