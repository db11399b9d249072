package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voicebridge/core"

	"github.com/bytedance/sonic"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey     string                   `json:"api_key" yaml:"api_key"`
	BaseURL    string                   `json:"base_url" yaml:"base_url"`
	VoiceID    string                   `json:"voice_id" yaml:"voice_id"`
	ModelID    string                   `json:"model_id" yaml:"model_id"`
	Encoding   core.AudioEncodingFormat `json:"encoding" yaml:"encoding"`
	SampleRate int                      `json:"sample_rate" yaml:"sample_rate"`

	// Voice settings
	Stability       float64 `json:"stability" yaml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost"`
}

// ElevenLabsTTS synthesizes a whole reply with the REST text-to-speech endpoint.
type ElevenLabsTTS struct {
	config     ElevenLabsTTSConfig
	httpClient *http.Client
	logger     *core.Logger
}

type (
	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	elRequest struct {
		Text          string          `json:"text"`
		ModelID       string          `json:"model_id"`
		VoiceSettings elVoiceSettings `json:"voice_settings"`
	}
)

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) (*ElevenLabsTTS, error) {
	if config.APIKey == "" {
		return nil, errors.New("ElevenLabs API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Default: Rachel
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_turbo_v2_5"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}

	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config:     config,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

func (e *ElevenLabsTTS) Name() string {
	return "elevenlabs-tts"
}

// outputFormat converts config encoding + sample rate to the output_format
// param and the format the returned bytes will be in.
func outputFormat(encoding core.AudioEncodingFormat, sampleRate int) (string, int) {
	if encoding == core.ULAW {
		return "ulaw_8000", 8000
	}
	switch sampleRate {
	case 16000, 22050, 44100:
		return fmt.Sprintf("pcm_%d", sampleRate), sampleRate
	default:
		return "pcm_24000", 24000
	}
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	format, rate := outputFormat(e.config.Encoding, e.config.SampleRate)
	endpoint := fmt.Sprintf("%s/%s?output_format=%s",
		strings.TrimRight(e.config.BaseURL, "/"),
		url.PathEscape(e.config.VoiceID),
		format)

	payload, err := sonic.Marshal(elRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: elVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
	})
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.AudioChunk{}, core.NewProviderError(e.Name(), resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to read audio: %w", err)
	}

	encoding := core.PCM
	if e.config.Encoding == core.ULAW {
		encoding = core.ULAW
	}
	return core.AudioChunk{Data: data, SampleRate: rate, Channels: 1, Format: encoding}, nil
}
