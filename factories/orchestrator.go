package factories

import (
	"fmt"

	"voicebridge/core"
	contexthandler "voicebridge/handlers/context"
	"voicebridge/handlers/turn"
)

// BuildOrchestrator builds the conversation store, the three provider services
// and the orchestrator that ties them together. Keys must already be injected.
func BuildOrchestrator(settings SettingsConfig, logger *core.Logger) (*turn.Orchestrator, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	sttService, err := BuildSTTService(settings.STT, logger)
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	llmService, err := BuildLLMService(settings.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	ttsService, err := BuildTTSService(settings.TTS, logger)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	store, err := contexthandler.NewConversationStore(settings.Conversation, logger)
	if err != nil {
		return nil, err
	}

	logger.With(map[string]any{
		"stt": sttService.Name(),
		"llm": llmService.Name(),
		"tts": ttsService.Name(),
	}).Info("providers ready")

	return turn.NewOrchestrator(settings.Turn.TurnConfig(), turn.Services{
		STT: sttService,
		LLM: llmService,
		TTS: ttsService,
	}, store, logger)
}
