package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"voicebridge/core"

	"github.com/sashabaranov/go-openai"
)

// OpenAI returns pcm as 24 kHz mono little-endian PCM16.
const (
	pcmSampleRate = 24000
	pcmChannels   = 1
)

// Config holds the configuration for OpenAI speech synthesis
type Config struct {
	APIKey  string  `json:"api_key" yaml:"api_key"`
	BaseURL string  `json:"base_url" yaml:"base_url"`
	Model   string  `json:"model" yaml:"model"`
	Voice   string  `json:"voice" yaml:"voice"`
	Speed   float64 `json:"speed" yaml:"speed"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model: string(openai.TTSModel1),
		Voice: string(openai.VoiceAlloy),
		Speed: 1.0,
	}
}

type OpenAITTSService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

func NewOpenAITTSService(config Config, logger *core.Logger) (*OpenAITTSService, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Voice == "" {
		config.Voice = defaults.Voice
	}
	if config.Speed == 0 {
		config.Speed = defaults.Speed
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAITTSService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

func (s *OpenAITTSService) Name() string {
	return "openai-tts"
}

// Synthesize requests raw linear PCM for the whole text.
func (s *OpenAITTSService) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          s.config.Speed,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return core.AudioChunk{}, &core.ProviderError{Provider: s.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return core.AudioChunk{}, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return core.AudioChunk{
		Data:       data,
		SampleRate: pcmSampleRate,
		Channels:   pcmChannels,
		Format:     core.PCM,
	}, nil
}
