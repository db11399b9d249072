package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voicebridge/core"

	"github.com/bytedance/sonic"
)

// DeepgramConfig holds configuration options for Deepgram STT
type DeepgramConfig struct {
	APIKey          string   `json:"api_key" yaml:"api_key"`
	BaseURL         string   `json:"base_url" yaml:"base_url"`
	Model           string   `json:"model" yaml:"model"`
	Language        string   `json:"language" yaml:"language"`
	Punctuate       bool     `json:"punctuate" yaml:"punctuate"`
	SmartFormat     bool     `json:"smart_format" yaml:"smart_format"`
	ProfanityFilter bool     `json:"profanity_filter" yaml:"profanity_filter"`
	Numerals        bool     `json:"numerals" yaml:"numerals"`
	Keyterms        []string `json:"keyterms" yaml:"keyterms"`
}

// DefaultConfig returns a default configuration for Deepgram STT
func DefaultConfig() DeepgramConfig {
	return DeepgramConfig{
		BaseURL:     "https://api.deepgram.com",
		Model:       "nova-2",
		Punctuate:   true,
		SmartFormat: true,
	}
}

// DeepgramSTTService transcribes one prerecorded WAV utterance per request.
type DeepgramSTTService struct {
	config     DeepgramConfig
	httpClient *http.Client
	logger     *core.Logger
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// NewDeepgramSTTService creates a new Deepgram STT service instance.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDeepgramSTTService(config DeepgramConfig, logger *core.Logger) (*DeepgramSTTService, error) {
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
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DeepgramSTTService{
		config:     config,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

func (d *DeepgramSTTService) Name() string {
	return "deepgram-stt"
}

func (d *DeepgramSTTService) buildURL() (string, error) {
	base, err := url.Parse(strings.TrimRight(d.config.BaseURL, "/") + "/v1/listen")
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("model", d.config.Model)
	if d.config.Language != "" {
		q.Set("language", d.config.Language)
	}
	q.Set("punctuate", strconv.FormatBool(d.config.Punctuate))
	q.Set("smart_format", strconv.FormatBool(d.config.SmartFormat))
	q.Set("profanity_filter", strconv.FormatBool(d.config.ProfanityFilter))
	q.Set("numerals", strconv.FormatBool(d.config.Numerals))
	for _, keyterm := range d.config.Keyterms {
		q.Add("keyterm", keyterm)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Transcribe posts the container as audio/wav; Deepgram reads the format from the header.
func (d *DeepgramSTTService) Transcribe(ctx context.Context, wav []byte, format core.AudioFormat) (string, error) {
	endpoint, err := d.buildURL()
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	// Deepgram requires "Token " prefix for API key
	req.Header.Set("Authorization", "Token "+d.config.APIKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", core.NewProviderError(d.Name(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	var result listenResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	alt := result.Results.Channels[0].Alternatives[0]
	core.LoggerFromContext(ctx, d.logger).With(map[string]any{
		"confidence": alt.Confidence,
		"format":     format.String(),
	}).Trace("Deepgram transcript received")
	return alt.Transcript, nil
}
