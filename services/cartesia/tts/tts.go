package cartesia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicebridge/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

const (
	defaultCartesiaURL        = "https://api.cartesia.ai/tts/bytes"
	defaultCartesiaModelID    = "sonic-2"
	defaultCartesiaVoiceID    = "a0e99841-438c-4a64-b679-ae501e7d6091" // Helpful Woman
	defaultCartesiaAPIVersion = "2024-11-13"
	defaultCartesiaLanguage   = "en"
	defaultCartesiaSampleRate = 24000
)

// CartesiaTTSConfig holds configuration for the Cartesia TTS service.
type CartesiaTTSConfig struct {
	APIKey     string `json:"api_key" yaml:"api_key"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	ModelID    string `json:"model_id" yaml:"model_id"`
	VoiceID    string `json:"voice_id" yaml:"voice_id"`
	Language   string `json:"language" yaml:"language"`
	APIVersion string `json:"api_version" yaml:"api_version"`
	SampleRate int    `json:"sample_rate" yaml:"sample_rate"`
}

// CartesiaTTS requests a complete WAV file from the bytes endpoint.
type CartesiaTTS struct {
	config     CartesiaTTSConfig
	httpClient *http.Client
	logger     *core.Logger
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFmt struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaTTSRequest struct {
	ModelID    string            `json:"model_id"`
	Transcript string            `json:"transcript"`
	Voice      cartesiaVoice     `json:"voice"`
	OutputFmt  cartesiaOutputFmt `json:"output_format"`
	Language   string            `json:"language,omitempty"`
}

// NewCartesiaTTS creates a new Cartesia TTS service with sensible defaults.
func NewCartesiaTTS(config CartesiaTTSConfig, logger *core.Logger) (*CartesiaTTS, error) {
	if config.APIKey == "" {
		return nil, errors.New("Cartesia API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultCartesiaURL
	}
	if config.ModelID == "" {
		config.ModelID = defaultCartesiaModelID
	}
	if config.VoiceID == "" {
		config.VoiceID = defaultCartesiaVoiceID
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultCartesiaAPIVersion
	}
	if config.Language == "" {
		config.Language = defaultCartesiaLanguage
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultCartesiaSampleRate
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &CartesiaTTS{
		config:     config,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

func (c *CartesiaTTS) Name() string {
	return "cartesia-tts"
}

// Synthesize returns the provider's WAV container as is; its header is
// validated when the chunk is decoded.
func (c *CartesiaTTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	payload, err := sonic.Marshal(cartesiaTTSRequest{
		ModelID:    c.config.ModelID,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: c.config.VoiceID},
		OutputFmt: cartesiaOutputFmt{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: c.config.SampleRate,
		},
		Language: c.config.Language,
	})
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("Cartesia-Version", c.config.APIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.AudioChunk{}, core.NewProviderError(c.Name(), resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to read audio: %w", err)
	}

	core.LoggerFromContext(ctx, c.logger).With(map[string]any{"request_id": requestID, "bytes": len(data)}).Trace("Cartesia audio received")
	return core.AudioChunk{Data: data, Format: core.WAV}, nil
}
