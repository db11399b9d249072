package stt

import (
	"fmt"
	"time"

	"voicebridge/core"
)

type STTConfig struct {
	CaptureFormat  core.AudioFormat `json:"capture_format" yaml:"capture_format"`     // Format of the raw PCM the device uploads.
	RequiredFormat core.AudioFormat `json:"required_format" yaml:"required_format"`   // Format the transcription engine is sent. Capture audio is converted when it differs.
	MinSpeechBytes int              `json:"min_speech_bytes" yaml:"min_speech_bytes"` // Captures shorter than this are treated as no speech and never reach the engine.
	Timeout        time.Duration    `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns an STTConfig for 16 kHz mono capture.
func DefaultConfig() STTConfig {
	return STTConfig{
		CaptureFormat:  core.AudioFormat{SampleRate: 16000, Channels: 1},
		RequiredFormat: core.AudioFormat{SampleRate: 16000, Channels: 1},
		MinSpeechBytes: 1000,
		Timeout:        30 * time.Second,
	}
}

func (c STTConfig) Validate() error {
	if err := c.CaptureFormat.Validate(); err != nil {
		return fmt.Errorf("capture_format: %w", err)
	}
	if err := c.RequiredFormat.Validate(); err != nil {
		return fmt.Errorf("required_format: %w", err)
	}
	if c.MinSpeechBytes < 0 {
		return fmt.Errorf("min_speech_bytes must not be negative, got %d", c.MinSpeechBytes)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
