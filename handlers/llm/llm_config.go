package llm

import (
	"fmt"
	"time"
)

type LLMHandlerConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"` // Deadline for a single completion request.
}

// DefaultConfig returns an LLMHandlerConfig with sensible defaults.
func DefaultConfig() LLMHandlerConfig {
	return LLMHandlerConfig{
		Timeout: 30 * time.Second,
	}
}

func (c LLMHandlerConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
