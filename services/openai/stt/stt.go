package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"voicebridge/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for OpenAI transcription
type Config struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Model    string `json:"model" yaml:"model"`
	Language string `json:"language" yaml:"language"` // ISO-639-1 hint. Empty lets the model detect it.
	Prompt   string `json:"prompt" yaml:"prompt"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model: openai.Whisper1,
	}
}

// OpenAISTTService uploads one WAV utterance per request.
type OpenAISTTService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

func NewOpenAISTTService(config Config, logger *core.Logger) (*OpenAISTTService, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAISTTService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

func (s *OpenAISTTService) Name() string {
	return "openai-stt"
}

func (s *OpenAISTTService) Transcribe(ctx context.Context, wav []byte, format core.AudioFormat) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.config.Model,
		FilePath: "capture.wav",
		Reader:   bytes.NewReader(wav),
		Language: s.config.Language,
		Prompt:   s.config.Prompt,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &core.ProviderError{Provider: s.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}
	core.LoggerFromContext(ctx, s.logger).With(map[string]any{"format": format.String(), "bytes": len(wav)}).Trace("OpenAI transcription received")
	return resp.Text, nil
}
