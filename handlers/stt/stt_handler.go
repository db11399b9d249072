package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voicebridge/core"
	"voicebridge/utils/audio"
)

// ErrNoSpeech means the capture was too short to contain speech. It is not a failure.
var ErrNoSpeech = errors.New("stt: no speech in capture")

// STTService turns one complete WAV utterance into text.
type STTService interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte, format core.AudioFormat) (string, error)
}

type STTHandler struct {
	service STTService
	config  STTConfig
	logger  *core.Logger
}

// NewSTTHandler creates a new STT handler.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewSTTHandler(service STTService, config STTConfig, logger *core.Logger) (*STTHandler, error) {
	if service == nil {
		return nil, errors.New("stt: service is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &STTHandler{service: service, config: config, logger: logger}, nil
}

func (h *STTHandler) ServiceName() string {
	return h.service.Name()
}

// Transcribe converts a raw capture to the engine's format, wraps it in a WAV
// container and returns the trimmed transcript. An empty transcript is not an error.
func (h *STTHandler) Transcribe(ctx context.Context, capture []byte) (string, error) {
	logger := core.LoggerFromContext(ctx, h.logger)

	if len(capture) < h.config.MinSpeechBytes {
		logger.With(map[string]any{"bytes": len(capture), "threshold": h.config.MinSpeechBytes}).Debug("capture below speech threshold")
		return "", ErrNoSpeech
	}

	wav, err := h.encodeCapture(capture)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := h.service.Transcribe(callCtx, wav, h.config.RequiredFormat)
	if err != nil {
		return "", fmt.Errorf("stt: %s: %w", h.service.Name(), err)
	}
	text = strings.TrimSpace(text)

	logger.With(map[string]any{
		"service":     h.service.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
		"audio_sec":   float64(len(wav)-audio.WavHeaderSize) / float64(h.config.RequiredFormat.BytesPerSecond()),
		"chars":       len(text),
	}).Debug("transcription finished")
	return text, nil
}

// encodeCapture wraps the capture as a WAV in the required format. A capture
// already in that format is framed as-is; a trailing partial frame is dropped.
func (h *STTHandler) encodeCapture(capture []byte) ([]byte, error) {
	if h.config.CaptureFormat == h.config.RequiredFormat {
		frame := h.config.RequiredFormat.Channels * core.BitsPerSample / 8
		wav, err := audio.PCMBytesToWavBytes(capture[:len(capture)-len(capture)%frame], h.config.RequiredFormat)
		if err != nil {
			return nil, fmt.Errorf("stt: wrap capture: %w", err)
		}
		return wav, nil
	}

	pcm := audio.BytesToPCM(capture, h.config.CaptureFormat.SampleRate, h.config.CaptureFormat.Channels)
	pcm, err := audio.ConvertToFormat(pcm, h.config.RequiredFormat)
	if err != nil {
		return nil, fmt.Errorf("stt: convert capture: %w", err)
	}
	return audio.EncodeWAV(pcm), nil
}
