package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"voicebridge/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// maxCharsPerRequest is the character limit Deepgram accepts between flushes.
// Longer input is rejected with DATA-0001 (1008).
const maxCharsPerRequest = 2000

// DepgramTTSConfig holds configuration for the Deepgram TTS service
type DepgramTTSConfig struct {
	APIKey     string                   `json:"api_key" yaml:"api_key"`
	BaseURL    string                   `json:"base_url" yaml:"base_url"`
	Model      string                   `json:"model" yaml:"model"`
	Encoding   core.AudioEncodingFormat `json:"encoding" yaml:"encoding"`
	SampleRate int                      `json:"sample_rate" yaml:"sample_rate"`
}

// DefaultConfig returns a DepgramTTSConfig with sensible defaults
func DefaultConfig() DepgramTTSConfig {
	return DepgramTTSConfig{
		BaseURL:    "wss://api.deepgram.com/v1/speak",
		Model:      "aura-2-arcas-en",
		Encoding:   core.PCM,
		SampleRate: 24000,
	}
}

// DepgramTTS speaks one utterance per websocket connection: Speak, Flush,
// collect binary audio until Flushed, then Close.
type DepgramTTS struct {
	config DepgramTTSConfig
	dialer *websocket.Dialer
	logger *core.Logger
}

// Message types for Deepgram TTS WebSocket protocol
type (
	// Client messages
	speakV1Text struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	speakV1Control struct {
		Type string `json:"type"`
	}

	// Server messages share a type discriminator
	speakV1Message struct {
		Type        string  `json:"type"`
		ModelName   string  `json:"model_name"`
		SequenceID  float64 `json:"sequence_id"`
		Description string  `json:"description"`
		Code        string  `json:"code"`
	}
)

// NewDepgramTTS creates a new Deepgram TTS service with the provided config.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDepgramTTS(config DepgramTTSConfig, logger *core.Logger) (*DepgramTTS, error) {
	if config.APIKey == "" {
		return nil, errors.New("Deepgram API key is required")
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
		if config.Encoding == core.ULAW || config.Encoding == core.ALAW {
			config.SampleRate = 8000
		}
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &DepgramTTS{config: config, dialer: &dialer, logger: logger}, nil
}

func (d *DepgramTTS) Name() string {
	return "deepgram-tts"
}

// encodingToString converts core.AudioEncodingFormat to Deepgram API string
func encodingToString(encoding core.AudioEncodingFormat) string {
	switch encoding {
	case core.ULAW:
		return "mulaw"
	case core.ALAW:
		return "alaw"
	default:
		return "linear16"
	}
}

func (d *DepgramTTS) buildURL() (string, error) {
	u, err := url.Parse(d.config.BaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", d.config.Model)
	q.Set("encoding", encodingToString(d.config.Encoding))
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *DepgramTTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	if len(text) > maxCharsPerRequest {
		return core.AudioChunk{}, fmt.Errorf("text exceeds %d characters", maxCharsPerRequest)
	}
	endpoint, err := d.buildURL()
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("invalid base url: %w", err)
	}

	headers := http.Header{"Authorization": {"Token " + d.config.APIKey}}
	conn, resp, err := d.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return core.AudioChunk{}, core.NewProviderError(d.Name(), resp)
		}
		return core.AudioChunk{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock reads when the caller's deadline fires.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := d.send(conn, speakV1Text{Type: "Speak", Text: text}); err != nil {
		return core.AudioChunk{}, err
	}
	if err := d.send(conn, speakV1Control{Type: "Flush"}); err != nil {
		return core.AudioChunk{}, err
	}

	logger := core.LoggerFromContext(ctx, d.logger)
	var audio []byte
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return core.AudioChunk{}, ctxErr
			}
			return core.AudioChunk{}, fmt.Errorf("read failed: %w", err)
		}

		if messageType == websocket.BinaryMessage {
			audio = append(audio, message...)
			continue
		}

		var msg speakV1Message
		if err := sonic.Unmarshal(message, &msg); err != nil {
			return core.AudioChunk{}, fmt.Errorf("failed to parse message: %w", err)
		}
		switch msg.Type {
		case "Metadata":
			logger.With(map[string]any{"model": msg.ModelName}).Trace("Deepgram TTS metadata received")
		case "Warning":
			logger.With(map[string]any{"code": msg.Code, "description": msg.Description}).Warn("Deepgram TTS warning")
		case "Error":
			return core.AudioChunk{}, fmt.Errorf("Deepgram error: %s (code: %s)", msg.Description, msg.Code)
		case "Flushed":
			_ = d.send(conn, speakV1Control{Type: "Close"})
			return core.AudioChunk{
				Data:       audio,
				SampleRate: d.config.SampleRate,
				Channels:   1,
				Format:     d.config.Encoding,
			}, nil
		}
	}
}

func (d *DepgramTTS) send(conn *websocket.Conn, msg any) error {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}
