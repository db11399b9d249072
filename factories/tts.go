package factories

import (
	"errors"

	"voicebridge/core"
	ttshandler "voicebridge/handlers/tts"
	cartesia "voicebridge/services/cartesia/tts"
	deepgramtts "voicebridge/services/deepgram/tts"
	elevenlabs "voicebridge/services/elevenlabs/tts"
	openaitts "voicebridge/services/openai/tts"
)

// TTSFactoryConfig holds provider-specific configs for TTS service construction.
// Set exactly one provider config; the rest should be left nil.
type TTSFactoryConfig struct {
	OpenAIConfig     *openaitts.Config               `json:"openai,omitempty" yaml:"openai,omitempty"`
	DeepgramConfig   *deepgramtts.DepgramTTSConfig   `json:"deepgram,omitempty" yaml:"deepgram,omitempty"`
	ElevenLabsConfig *elevenlabs.ElevenLabsTTSConfig `json:"elevenlabs,omitempty" yaml:"elevenlabs,omitempty"`
	CartesiaConfig   *cartesia.CartesiaTTSConfig     `json:"cartesia,omitempty" yaml:"cartesia,omitempty"`
}

// InjectAPIKeys fills empty provider keys from keys.
func (c *TTSFactoryConfig) InjectAPIKeys(keys APIKeys) {
	if c.OpenAIConfig != nil && c.OpenAIConfig.APIKey == "" {
		c.OpenAIConfig.APIKey = keys.OpenAI
	}
	if c.DeepgramConfig != nil && c.DeepgramConfig.APIKey == "" {
		c.DeepgramConfig.APIKey = keys.Deepgram
	}
	if c.ElevenLabsConfig != nil && c.ElevenLabsConfig.APIKey == "" {
		c.ElevenLabsConfig.APIKey = keys.ElevenLabs
	}
	if c.CartesiaConfig != nil && c.CartesiaConfig.APIKey == "" {
		c.CartesiaConfig.APIKey = keys.Cartesia
	}
}

func (c TTSFactoryConfig) count() int {
	return countSet(c.OpenAIConfig != nil, c.DeepgramConfig != nil, c.ElevenLabsConfig != nil, c.CartesiaConfig != nil)
}

// BuildTTSService constructs a TTSService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildTTSService(config TTSFactoryConfig, logger *core.Logger) (ttshandler.TTSService, error) {
	if config.count() > 1 {
		return nil, errors.New("TTSFactoryConfig: more than one provider config specified")
	}
	if config.OpenAIConfig != nil {
		return openaitts.NewOpenAITTSService(*config.OpenAIConfig, logger)
	}
	if config.DeepgramConfig != nil {
		return deepgramtts.NewDepgramTTS(*config.DeepgramConfig, logger)
	}
	if config.ElevenLabsConfig != nil {
		return elevenlabs.NewElevenLabsTTS(*config.ElevenLabsConfig, logger)
	}
	if config.CartesiaConfig != nil {
		return cartesia.NewCartesiaTTS(*config.CartesiaConfig, logger)
	}
	return nil, errors.New("TTSFactoryConfig: no provider config specified")
}
