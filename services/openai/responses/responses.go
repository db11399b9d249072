package responses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicebridge/core"

	"github.com/bytedance/sonic"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds the configuration for the Responses API chat service.
type Config struct {
	APIKey          string `json:"api_key" yaml:"api_key"`
	BaseURL         string `json:"base_url" yaml:"base_url"`
	Model           string `json:"model" yaml:"model"`
	MaxOutputTokens int    `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Model:           "gpt-4o-mini",
		MaxOutputTokens: 150,
	}
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Instructions    string         `json:"instructions,omitempty"`
	Input           []inputMessage `json:"input"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Store           bool           `json:"store"`
}

// Service talks to POST {base}/responses. System messages become instructions.
type Service struct {
	config     Config
	httpClient *http.Client
	logger     *core.Logger
}

func New(config Config, logger *core.Logger) (*Service, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
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
	return &Service{
		config:     config,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

func (s *Service) Name() string {
	return "openai-responses"
}

func (s *Service) buildRequest(messages []core.LLMMessage) responsesRequest {
	req := responsesRequest{
		Model:           s.config.Model,
		MaxOutputTokens: s.config.MaxOutputTokens,
	}
	var instructions []string
	for _, msg := range messages {
		if msg.Role == core.LLMMessageRoleSystem {
			instructions = append(instructions, msg.Message)
			continue
		}
		req.Input = append(req.Input, inputMessage{Role: string(msg.Role), Content: msg.Message})
	}
	req.Instructions = strings.Join(instructions, "\n\n")
	return req
}

func (s *Service) Complete(ctx context.Context, messages []core.LLMMessage) (string, error) {
	payload, err := sonic.Marshal(s.buildRequest(messages))
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", core.NewProviderError(s.Name(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	text, shape, err := ExtractReplyText(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	core.LoggerFromContext(ctx, s.logger).With(map[string]any{"shape": string(shape)}).Trace("reply extracted")
	return text, nil
}
