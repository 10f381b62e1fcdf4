package schema

import (
	"encoding/json"
	"fmt"
)

// Frame types sent by the client. The first byte of every message on the
// terminal socket names its type; the rest is the payload.
const (
	// FrameInput carries raw keystroke bytes.
	FrameInput byte = '1'
	// FramePing is an empty keep-alive.
	FramePing byte = '2'
	// FrameResize carries a JSON ResizePayload.
	FrameResize byte = '3'
)

// Frame types sent by the backend.
const (
	// FrameOutput carries raw bytes appended verbatim to the terminal.
	FrameOutput byte = '1'
	// FramePong answers a keep-alive.
	FramePong byte = '2'
	// FrameSessionConfirmed carries a JSON SessionConfirmedPayload once a
	// shell is bound.
	FrameSessionConfirmed byte = '4'
)

// ResizePayload is the JSON body of a resize frame.
type ResizePayload struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// SessionConfirmedPayload is the JSON body of a session-confirmed frame.
type SessionConfirmedPayload struct {
	SessionID SessionID `json:"session_id"`
}

// EncodeInput frames keystroke bytes for the wire.
func EncodeInput(data []byte) []byte {
	return append([]byte{FrameInput}, data...)
}

// EncodePing frames a keep-alive.
func EncodePing() []byte {
	return []byte{FramePing}
}

// EncodeResize frames new terminal dimensions.
func EncodeResize(cols, rows int) ([]byte, error) {
	payload, err := json.Marshal(ResizePayload{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("encode resize: %w", err)
	}
	return append([]byte{FrameResize}, payload...), nil
}

// EncodeOutput frames backend output bytes.
func EncodeOutput(data []byte) []byte {
	return append([]byte{FrameOutput}, data...)
}

// EncodeSessionConfirmed frames the session binding confirmation.
func EncodeSessionConfirmed(id SessionID) ([]byte, error) {
	payload, err := json.Marshal(SessionConfirmedPayload{SessionID: id})
	if err != nil {
		return nil, fmt.Errorf("encode session confirmed: %w", err)
	}
	return append([]byte{FrameSessionConfirmed}, payload...), nil
}

// ServerFrame is a decoded backend-to-client message.
type ServerFrame struct {
	Type      byte
	Data      []byte
	SessionID SessionID
}

// DecodeServerFrame parses one backend message. The payload of output
// frames is returned verbatim; session-confirmed payloads are unmarshaled.
func DecodeServerFrame(msg []byte) (ServerFrame, error) {
	if len(msg) == 0 {
		return ServerFrame{}, fmt.Errorf("%w: empty message", ErrInvalidFrame)
	}
	frame := ServerFrame{Type: msg[0], Data: msg[1:]}
	switch frame.Type {
	case FrameOutput, FramePong:
		return frame, nil
	case FrameSessionConfirmed:
		var payload SessionConfirmedPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return ServerFrame{}, fmt.Errorf("%w: session confirmed: %v", ErrInvalidFrame, err)
		}
		if payload.SessionID == "" {
			return ServerFrame{}, fmt.Errorf("%w: session confirmed without session_id", ErrInvalidFrame)
		}
		frame.SessionID = payload.SessionID
		return frame, nil
	default:
		return ServerFrame{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, frame.Type)
	}
}

// ClientFrame is a decoded client-to-backend message, used by the gateway
// and by test backends.
type ClientFrame struct {
	Type   byte
	Data   []byte
	Resize ResizePayload
}

// DecodeClientFrame parses one client message.
func DecodeClientFrame(msg []byte) (ClientFrame, error) {
	if len(msg) == 0 {
		return ClientFrame{}, fmt.Errorf("%w: empty message", ErrInvalidFrame)
	}
	frame := ClientFrame{Type: msg[0], Data: msg[1:]}
	switch frame.Type {
	case FrameInput, FramePing:
		return frame, nil
	case FrameResize:
		if err := json.Unmarshal(frame.Data, &frame.Resize); err != nil {
			return ClientFrame{}, fmt.Errorf("%w: resize: %v", ErrInvalidFrame, err)
		}
		return frame, nil
	default:
		return ClientFrame{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, frame.Type)
	}
}
