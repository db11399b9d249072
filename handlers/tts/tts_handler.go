package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicebridge/core"
	"voicebridge/utils/audio"
	"voicebridge/utils/text"
)

var (
	// ErrEmptyText is returned when nothing speakable is left after normalisation.
	ErrEmptyText = errors.New("tts: nothing to synthesize")
	// ErrEmptyAudio is returned when the provider answered without usable audio.
	ErrEmptyAudio = errors.New("tts: provider returned no audio")
)

// TTSService synthesizes a complete utterance in one request.
type TTSService interface {
	Name() string
	Synthesize(ctx context.Context, text string) (core.AudioChunk, error)
}

type TTSHandler struct {
	service    TTSService
	config     TTSConfig
	normalizer text.INormalizer
	logger     *core.Logger
}

// NewTTSHandler creates a new TTS handler.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewTTSHandler(service TTSService, config TTSConfig, logger *core.Logger) (*TTSHandler, error) {
	if service == nil {
		return nil, errors.New("tts: service is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TTSHandler{
		service:    service,
		config:     config,
		normalizer: text.NewSpeechNormalizer(),
		logger:     logger,
	}, nil
}

func (h *TTSHandler) ServiceName() string {
	return h.service.Name()
}

// Synthesize speaks reply and returns a WAV file in the playback format.
func (h *TTSHandler) Synthesize(ctx context.Context, reply string) ([]byte, error) {
	logger := core.LoggerFromContext(ctx, h.logger)

	speakable := h.normalizer.Normalize(reply)
	if speakable == "" {
		return nil, ErrEmptyText
	}

	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	chunk, err := h.service.Synthesize(callCtx, speakable)
	if err != nil {
		return nil, fmt.Errorf("tts: %s: %w", h.service.Name(), err)
	}
	if len(chunk.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	pcm, err := audio.ChunkToPCM(chunk)
	if err != nil {
		return nil, fmt.Errorf("tts: %s: decode %s audio: %w", h.service.Name(), chunk.Format, err)
	}
	native := pcm.Format()
	pcm, err = audio.ConvertToFormat(pcm, h.config.PlaybackFormat)
	if err != nil {
		return nil, fmt.Errorf("tts: convert %s to %s: %w", native, h.config.PlaybackFormat, err)
	}
	if pcm.ByteLength() < h.config.MinAudioBytes {
		return nil, fmt.Errorf("%w: %d bytes after conversion", ErrEmptyAudio, pcm.ByteLength())
	}

	logger.With(map[string]any{
		"service":     h.service.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
		"native":      native.String(),
		"audio_sec":   pcm.GetDurationInSeconds(),
	}).Debug("synthesis finished")
	return audio.EncodeWAV(pcm), nil
}
