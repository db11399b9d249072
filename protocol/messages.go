package protocol

import (
	"encoding/json"

	"voicebridge/handlers/turn"
)

// MessageType enumerates all turn protocol message types.
type MessageType string

const (
	// Device -> bridge
	MsgTurnStart MessageType = "turn_start"
	MsgReset     MessageType = "reset"

	// Bridge -> device
	MsgTurnResult MessageType = "turn_result"
	MsgError      MessageType = "error"
	MsgAck        MessageType = "ack"
)

// Envelope is the outer JSON wrapper for all text frames. Audio always travels
// in the binary frame that follows a turn_start or turn_result.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Device -> bridge payloads ---

// TurnStartPayload announces the capture that arrives in the next binary frame.
type TurnStartPayload struct {
	SessionID string `json:"session_id,omitempty"`
}

// ResetPayload clears a session's history.
type ResetPayload struct {
	SessionID string `json:"session_id,omitempty"`
}

// --- Bridge -> device payloads ---

// TurnResultPayload precedes a binary frame of exactly Size bytes of WAV.
type TurnResultPayload struct {
	TurnID     string              `json:"turn_id"`
	SessionID  string              `json:"session_id"`
	Status     turn.Status         `json:"status"`
	Transcript string              `json:"transcript"`
	Reply      string              `json:"reply"`
	Size       int                 `json:"size"`
	Failures   []turn.StageFailure `json:"failures,omitempty"`
}

// ErrorPayload reports a turn or protocol failure. No binary frame follows.
type ErrorPayload struct {
	TurnID  string `json:"turn_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckPayload acknowledges a received message.
type AckPayload struct {
	AckedType MessageType `json:"acked_type"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
}

// NewTurnResultPayload copies the device-facing fields of a result.
func NewTurnResultPayload(result *turn.TurnResult) TurnResultPayload {
	return TurnResultPayload{
		TurnID:     result.TurnID,
		SessionID:  result.SessionID,
		Status:     result.Status,
		Transcript: result.Transcript,
		Reply:      result.Reply,
		Size:       result.ContentLength,
		Failures:   result.Failures,
	}
}
