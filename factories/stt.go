package factories

import (
	"errors"

	"voicebridge/core"
	stthandler "voicebridge/handlers/stt"
	deepgramstt "voicebridge/services/deepgram/stt"
	openaistt "voicebridge/services/openai/stt"
)

// STTFactoryConfig holds provider-specific configs for STT service construction.
// Set exactly one provider config; the rest should be left nil.
type STTFactoryConfig struct {
	OpenAIConfig   *openaistt.Config           `json:"openai,omitempty" yaml:"openai,omitempty"`
	DeepgramConfig *deepgramstt.DeepgramConfig `json:"deepgram,omitempty" yaml:"deepgram,omitempty"`
}

// InjectAPIKeys fills empty provider keys from keys.
func (c *STTFactoryConfig) InjectAPIKeys(keys APIKeys) {
	if c.OpenAIConfig != nil && c.OpenAIConfig.APIKey == "" {
		c.OpenAIConfig.APIKey = keys.OpenAI
	}
	if c.DeepgramConfig != nil && c.DeepgramConfig.APIKey == "" {
		c.DeepgramConfig.APIKey = keys.Deepgram
	}
}

func (c STTFactoryConfig) count() int {
	return countSet(c.OpenAIConfig != nil, c.DeepgramConfig != nil)
}

// BuildSTTService constructs an STTService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildSTTService(config STTFactoryConfig, logger *core.Logger) (stthandler.STTService, error) {
	if n := config.count(); n > 1 {
		return nil, errors.New("STTFactoryConfig: more than one provider config specified")
	}
	if config.OpenAIConfig != nil {
		return openaistt.NewOpenAISTTService(*config.OpenAIConfig, logger)
	}
	if config.DeepgramConfig != nil {
		return deepgramstt.NewDeepgramSTTService(*config.DeepgramConfig, logger)
	}
	return nil, errors.New("STTFactoryConfig: no provider config specified")
}

func countSet(set ...bool) int {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	return n
}
