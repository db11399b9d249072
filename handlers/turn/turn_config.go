package turn

import (
	"fmt"
	"time"

	"voicebridge/handlers/llm"
	"voicebridge/handlers/stt"
	"voicebridge/handlers/tts"
)

// TurnConfig is fixed at construction. Every audio format and deadline a
// turn needs lives here so no stage derives its own.
type TurnConfig struct {
	STT         stt.STTConfig        `json:"stt" yaml:"stt"`
	LLM         llm.LLMHandlerConfig `json:"llm" yaml:"llm"`
	TTS         tts.TTSConfig        `json:"tts" yaml:"tts"`
	TurnTimeout time.Duration        `json:"turn_timeout" yaml:"turn_timeout"` // Ceiling for a whole turn. 0 leaves only the per-stage deadlines.
}

// DefaultConfig returns a TurnConfig for a 16 kHz mono device.
func DefaultConfig() TurnConfig {
	return TurnConfig{
		STT: stt.DefaultConfig(),
		LLM: llm.DefaultConfig(),
		TTS: tts.DefaultConfig(),
	}
}

func (c TurnConfig) Validate() error {
	if err := c.STT.Validate(); err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.TTS.Validate(); err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn_timeout must not be negative, got %s", c.TurnTimeout)
	}
	return nil
}
