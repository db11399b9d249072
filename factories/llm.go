package factories

import (
	"errors"

	"voicebridge/core"
	llmhandler "voicebridge/handlers/llm"
	openaillm "voicebridge/services/openai/llm"
	"voicebridge/services/openai/responses"
)

// LLMFactoryConfig holds provider-specific configs for LLM service construction.
// Set exactly one provider config; the rest should be left nil.
// All non-OpenAI providers use the OpenAI-compatible protocol and are
// implemented via the same OpenAI service with a custom base URL.
type LLMFactoryConfig struct {
	OpenAIConfig     *openaillm.Config `json:"openai,omitempty" yaml:"openai,omitempty"`
	ResponsesConfig  *responses.Config `json:"openai_responses,omitempty" yaml:"openai_responses,omitempty"`
	TogetherConfig   *openaillm.Config `json:"together,omitempty" yaml:"together,omitempty"`
	GroqConfig       *openaillm.Config `json:"groq,omitempty" yaml:"groq,omitempty"`
	DeepSeekConfig   *openaillm.Config `json:"deepseek,omitempty" yaml:"deepseek,omitempty"`
	OpenRouterConfig *openaillm.Config `json:"openrouter,omitempty" yaml:"openrouter,omitempty"`
	FireworksConfig  *openaillm.Config `json:"fireworks,omitempty" yaml:"fireworks,omitempty"`
	CerebrasConfig   *openaillm.Config `json:"cerebras,omitempty" yaml:"cerebras,omitempty"`
	XAIConfig        *openaillm.Config `json:"xai,omitempty" yaml:"xai,omitempty"`
	MistralConfig    *openaillm.Config `json:"mistral,omitempty" yaml:"mistral,omitempty"`
	PerplexityConfig *openaillm.Config `json:"perplexity,omitempty" yaml:"perplexity,omitempty"`
}

// Default base URLs for OpenAI-compatible providers.
const (
	togetherBaseURL   = "https://api.together.xyz/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openrouterBaseURL = "https://openrouter.ai/api/v1"
	fireworksBaseURL  = "https://api.fireworks.ai/inference/v1"
	cerebrasBaseURL   = "https://api.cerebras.ai/v1"
	xaiBaseURL        = "https://api.x.ai/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
	perplexityBaseURL = "https://api.perplexity.ai"
)

// InjectAPIKeys fills empty provider keys from keys.
func (c *LLMFactoryConfig) InjectAPIKeys(keys APIKeys) {
	inject := func(cfg *openaillm.Config, key string) {
		if cfg != nil && cfg.APIKey == "" {
			cfg.APIKey = key
		}
	}
	inject(c.OpenAIConfig, keys.OpenAI)
	inject(c.TogetherConfig, keys.Together)
	inject(c.GroqConfig, keys.Groq)
	inject(c.DeepSeekConfig, keys.DeepSeek)
	inject(c.OpenRouterConfig, keys.OpenRouter)
	inject(c.FireworksConfig, keys.Fireworks)
	inject(c.CerebrasConfig, keys.Cerebras)
	inject(c.XAIConfig, keys.XAI)
	inject(c.MistralConfig, keys.Mistral)
	inject(c.PerplexityConfig, keys.Perplexity)
	if c.ResponsesConfig != nil && c.ResponsesConfig.APIKey == "" {
		c.ResponsesConfig.APIKey = keys.OpenAI
	}
}

func (c LLMFactoryConfig) count() int {
	return countSet(
		c.OpenAIConfig != nil, c.ResponsesConfig != nil,
		c.TogetherConfig != nil, c.GroqConfig != nil, c.DeepSeekConfig != nil,
		c.OpenRouterConfig != nil, c.FireworksConfig != nil, c.CerebrasConfig != nil,
		c.XAIConfig != nil, c.MistralConfig != nil, c.PerplexityConfig != nil,
	)
}

// BuildLLMService constructs an LLMService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildLLMService(config LLMFactoryConfig, logger *core.Logger) (llmhandler.LLMService, error) {
	if config.count() > 1 {
		return nil, errors.New("LLMFactoryConfig: more than one provider config specified")
	}
	if config.OpenAIConfig != nil {
		return openaillm.NewOpenAILLMService(*config.OpenAIConfig, logger)
	}
	if config.ResponsesConfig != nil {
		return responses.New(*config.ResponsesConfig, logger)
	}
	if config.TogetherConfig != nil {
		return buildOpenAICompatible(*config.TogetherConfig, togetherBaseURL, "meta-llama/Llama-3.3-70B-Instruct-Turbo", logger)
	}
	if config.GroqConfig != nil {
		return buildOpenAICompatible(*config.GroqConfig, groqBaseURL, "llama-3.3-70b-versatile", logger)
	}
	if config.DeepSeekConfig != nil {
		return buildOpenAICompatible(*config.DeepSeekConfig, deepseekBaseURL, "deepseek-chat", logger)
	}
	if config.OpenRouterConfig != nil {
		return buildOpenAICompatible(*config.OpenRouterConfig, openrouterBaseURL, "openai/gpt-4o", logger)
	}
	if config.FireworksConfig != nil {
		return buildOpenAICompatible(*config.FireworksConfig, fireworksBaseURL, "accounts/fireworks/models/llama-v3p3-70b-instruct", logger)
	}
	if config.CerebrasConfig != nil {
		return buildOpenAICompatible(*config.CerebrasConfig, cerebrasBaseURL, "llama-3.3-70b", logger)
	}
	if config.XAIConfig != nil {
		return buildOpenAICompatible(*config.XAIConfig, xaiBaseURL, "grok-3", logger)
	}
	if config.MistralConfig != nil {
		return buildOpenAICompatible(*config.MistralConfig, mistralBaseURL, "mistral-large-latest", logger)
	}
	if config.PerplexityConfig != nil {
		return buildOpenAICompatible(*config.PerplexityConfig, perplexityBaseURL, "sonar-pro", logger)
	}
	return nil, errors.New("LLMFactoryConfig: no provider config specified")
}

// buildOpenAICompatible creates an OpenAI-compatible LLM service, applying default
// base URL and model if not explicitly set in the config.
func buildOpenAICompatible(cfg openaillm.Config, defaultBaseURL, defaultModel string, logger *core.Logger) (*openaillm.OpenAILLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return openaillm.NewOpenAILLMService(cfg, logger)
}
