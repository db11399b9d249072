package tts

import (
	"fmt"
	"time"

	"voicebridge/core"
)

type TTSConfig struct {
	PlaybackFormat core.AudioFormat `json:"playback_format" yaml:"playback_format"` // Format the device speaker expects. Provider audio is converted to it.
	MinAudioBytes  int              `json:"min_audio_bytes" yaml:"min_audio_bytes"` // Provider audio shorter than this, after conversion, is rejected as a failed synthesis.
	Timeout        time.Duration    `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a TTSConfig for a 16 kHz mono speaker.
func DefaultConfig() TTSConfig {
	return TTSConfig{
		PlaybackFormat: core.AudioFormat{SampleRate: 16000, Channels: 1},
		MinAudioBytes:  2,
		Timeout:        30 * time.Second,
	}
}

func (c TTSConfig) Validate() error {
	if err := c.PlaybackFormat.Validate(); err != nil {
		return fmt.Errorf("playback_format: %w", err)
	}
	if c.MinAudioBytes < 1 {
		return fmt.Errorf("min_audio_bytes must be at least 1, got %d", c.MinAudioBytes)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
