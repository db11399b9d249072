package llm

import (
	"context"
	"errors"
	"fmt"

	"voicebridge/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for OpenAI service
type Config struct {
	APIKey      string  `json:"api_key" yaml:"api_key"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT4oMini,
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

// OpenAILLMService answers with Chat Completions. The reply is read from
// choices[0].message.content.
type OpenAILLMService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

// NewOpenAILLMService creates a new instance of OpenAILLMService
func NewOpenAILLMService(config Config, logger *core.Logger) (*OpenAILLMService, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAILLMService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

func (s *OpenAILLMService) Name() string {
	return "openai-chat"
}

// Complete runs a single non-streaming completion.
func (s *OpenAILLMService) Complete(ctx context.Context, messages []core.LLMMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    convertMessages(messages),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &core.ProviderError{Provider: s.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		core.LoggerFromContext(ctx, s.logger).Warn("OpenAI completion returned no choices")
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// convertMessages converts core messages to OpenAI messages
func convertMessages(messages []core.LLMMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Message,
		})
	}
	return out
}

func convertRole(role core.LLMMessageRole) string {
	switch role {
	case core.LLMMessageRoleSystem:
		return openai.ChatMessageRoleSystem
	case core.LLMMessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
