package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voicebridge/core"
)

// LLMService produces a single non-streamed reply for a message list.
// An absent reply is returned as "" with a nil error.
type LLMService interface {
	Name() string
	Complete(ctx context.Context, messages []core.LLMMessage) (string, error)
}

type LLMHandler struct {
	service LLMService
	config  LLMHandlerConfig
	logger  *core.Logger
}

// NewLLMHandler creates a new LLM handler.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewLLMHandler(service LLMService, config LLMHandlerConfig, logger *core.Logger) (*LLMHandler, error) {
	if service == nil {
		return nil, errors.New("llm: service is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &LLMHandler{service: service, config: config, logger: logger}, nil
}

func (h *LLMHandler) ServiceName() string {
	return h.service.Name()
}

// BuildContext prefixes history with the fixed persona.
func BuildContext(history []core.LLMMessage) core.LLMContext {
	var llmCtx core.LLMContext
	llmCtx.AddSystemMessage(SYSTEM_PERSONA_PROMPT)
	llmCtx.Messages = append(llmCtx.Messages, history...)
	return llmCtx
}

// Reply asks the service for the next assistant turn. history must already
// end with the user turn being answered.
func (h *LLMHandler) Reply(ctx context.Context, history []core.LLMMessage) (string, error) {
	logger := core.LoggerFromContext(ctx, h.logger)
	llmCtx := BuildContext(history)

	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := h.service.Complete(callCtx, llmCtx.Messages)
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", h.service.Name(), err)
	}
	reply = strings.TrimSpace(reply)

	logger.With(map[string]any{
		"service":     h.service.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
		"history":     len(history),
		"chars":       len(reply),
	}).Debug("completion finished")
	return reply, nil
}
