package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voicebridge/core"
	"voicebridge/handlers/turn"
	"voicebridge/protocol"

	"github.com/gorilla/websocket"
)

// TurnRunner runs one voice turn.
type TurnRunner interface {
	Run(ctx context.Context, req turn.TurnRequest) (*turn.TurnResult, error)
}

// SessionResetter clears a session's history.
type SessionResetter interface {
	Reset(session string)
}

type Config struct {
	MaxCaptureBytes int64
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration // Close the connection after this long without a frame. 0 disables.
}

func DefaultConfig() Config {
	return Config{
		MaxCaptureBytes: 10 << 20,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     5 * time.Minute,
	}
}

// Handler upgrades /ws and runs one turn per turn_start + binary capture pair.
// Turns on one connection run one at a time.
type Handler struct {
	config   Config
	runner   TurnRunner
	store    SessionResetter
	upgrader websocket.Upgrader
	logger   *core.Logger
}

func NewHandler(config Config, runner TurnRunner, store SessionResetter, logger *core.Logger) *Handler {
	if config.MaxCaptureBytes <= 0 {
		config.MaxCaptureBytes = DefaultConfig().MaxCaptureBytes
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Handler{
		config: config,
		runner: runner,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(map[string]any{"component": "websocket"}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.With(map[string]any{"error": err}).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.config.MaxCaptureBytes)

	c := &connection{Handler: h, conn: conn, session: r.URL.Query().Get("session")}
	c.serve(r.Context())
}

type connection struct {
	*Handler
	conn    *websocket.Conn
	session string // default for turn_start frames without a session_id
}

func (c *connection) serve(ctx context.Context) {
	for {
		c.extendReadDeadline()
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.With(map[string]any{"error": err}).Debug("websocket read ended")
			}
			return
		}
		if messageType == websocket.BinaryMessage {
			if !c.sendError("", "unexpected_audio", "send turn_start before the capture") {
				return
			}
			continue
		}

		msgType, payload, err := protocol.Unmarshal(message)
		if err != nil {
			if !c.sendError("", "bad_envelope", err.Error()) {
				return
			}
			continue
		}

		var ok bool
		switch msgType {
		case protocol.MsgTurnStart:
			ok = c.handleTurnStart(ctx, payload)
		case protocol.MsgReset:
			ok = c.handleReset(payload)
		default:
			ok = c.sendError("", "unknown_type", "unknown message type "+string(msgType))
		}
		if !ok {
			return
		}
	}
}

// handleTurnStart reads the capture frame, runs the turn and writes the reply.
// It returns false when the connection is no longer usable.
func (c *connection) handleTurnStart(ctx context.Context, raw []byte) bool {
	start, err := protocol.UnmarshalPayload[protocol.TurnStartPayload](raw)
	if err != nil {
		return c.sendError("", "bad_payload", err.Error())
	}
	session := start.SessionID
	if session == "" {
		session = c.session
	}

	c.extendReadDeadline()
	messageType, capture, err := c.conn.ReadMessage()
	if err != nil {
		return false
	}
	if messageType != websocket.BinaryMessage {
		return c.sendError("", "expected_audio", "turn_start must be followed by a binary capture")
	}

	result, err := c.runner.Run(ctx, turn.TurnRequest{SessionID: session, Audio: capture})
	if err != nil {
		code := "turn_failed"
		if errors.Is(err, turn.ErrSynthesisFailed) {
			code = "synthesis_failed"
		}
		turnID := ""
		if result != nil {
			turnID = result.TurnID
		}
		return c.sendError(turnID, code, err.Error())
	}

	if !c.sendEnvelope(protocol.MsgTurnResult, protocol.NewTurnResultPayload(result)) {
		return false
	}
	return c.write(websocket.BinaryMessage, result.Audio)
}

func (c *connection) handleReset(raw []byte) bool {
	reset, err := protocol.UnmarshalPayload[protocol.ResetPayload](raw)
	if err != nil {
		return c.sendError("", "bad_payload", err.Error())
	}
	session := reset.SessionID
	if session == "" {
		session = c.session
	}
	c.store.Reset(session)
	return c.sendEnvelope(protocol.MsgAck, protocol.AckPayload{AckedType: protocol.MsgReset, OK: true})
}

func (c *connection) sendError(turnID, code, message string) bool {
	return c.sendEnvelope(protocol.MsgError, protocol.ErrorPayload{TurnID: turnID, Code: code, Message: message})
}

func (c *connection) sendEnvelope(msgType protocol.MessageType, payload any) bool {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		c.logger.With(map[string]any{"error": err, "type": string(msgType)}).Error("failed to encode envelope")
		return false
	}
	return c.write(websocket.TextMessage, data)
}

func (c *connection) write(messageType int, data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.With(map[string]any{"error": err}).Debug("websocket write failed")
		return false
	}
	return true
}

func (c *connection) extendReadDeadline() {
	if c.config.IdleTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.IdleTimeout))
	}
}
