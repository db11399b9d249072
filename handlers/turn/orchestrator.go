package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicebridge/core"
	contexthandler "voicebridge/handlers/context"
	"voicebridge/handlers/llm"
	"voicebridge/handlers/stt"
	"voicebridge/handlers/tts"
	"voicebridge/utils/audio"

	"github.com/google/uuid"
)

// Services are the three providers a turn talks to.
type Services struct {
	STT stt.STTService
	LLM llm.LLMService
	TTS tts.TTSService
}

// Orchestrator runs voice turns: transcribe, chat with bounded memory, synthesize.
// It is safe for concurrent use; the conversation store is the only shared state.
type Orchestrator struct {
	config   TurnConfig
	store    *contexthandler.ConversationStore
	stt      *stt.STTHandler
	llm      *llm.LLMHandler
	tts      *tts.TTSHandler
	recorder Recorder
	logger   *core.Logger
	silence  []byte
}

// NewOrchestrator wires the stage handlers. Use DefaultConfig() and override what you need.
func NewOrchestrator(config TurnConfig, services Services, store *contexthandler.ConversationStore, logger *core.Logger) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("turn: %w", err)
	}
	if store == nil {
		return nil, errors.New("turn: conversation store is required")
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	logger = logger.With(map[string]any{"component": "orchestrator"})

	sttHandler, err := stt.NewSTTHandler(services.STT, config.STT, logger)
	if err != nil {
		return nil, err
	}
	llmHandler, err := llm.NewLLMHandler(services.LLM, config.LLM, logger)
	if err != nil {
		return nil, err
	}
	ttsHandler, err := tts.NewTTSHandler(services.TTS, config.TTS, logger)
	if err != nil {
		return nil, err
	}

	playback := config.TTS.PlaybackFormat
	return &Orchestrator{
		config:   config,
		store:    store,
		stt:      sttHandler,
		llm:      llmHandler,
		tts:      ttsHandler,
		recorder: nopRecorder{},
		logger:   logger,
		silence:  audio.EncodeWAV(core.PCMBuffer{SampleRate: playback.SampleRate, Channels: playback.Channels, Samples: []int16{}}),
	}, nil
}

// WithRecorder sets the metrics sink. Returns the orchestrator to allow chaining.
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	if r == nil {
		r = nopRecorder{}
	}
	o.recorder = r
	return o
}

func (o *Orchestrator) Config() TurnConfig {
	return o.config
}

func (o *Orchestrator) Store() *contexthandler.ConversationStore {
	return o.store
}

// Run executes one turn. Degraded outcomes (no speech, failed transcription,
// failed chat) produce a result with silent audio and a nil error. Only a
// synthesis failure returns an error, together with a result that has no audio.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	result := &TurnResult{
		TurnID:    uuid.NewString(),
		SessionID: contexthandler.NormalizeSessionID(req.SessionID),
	}
	logger := o.logger.With(map[string]any{
		"turn_id":    result.TurnID,
		"session_id": result.SessionID,
	})
	ctx = core.ContextWithTurnLogger(ctx, logger)

	if o.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.TurnTimeout)
		defer cancel()
	}

	defer func() {
		result.ContentLength = len(result.Audio)
		result.Duration = time.Since(start)
		o.recorder.ObserveTurn(result.Status, result.Duration)
		logger.With(map[string]any{
			"status":      string(result.Status),
			"duration_ms": result.Duration.Milliseconds(),
			"bytes":       result.ContentLength,
		}).Info("turn finished")
	}()

	logger.With(map[string]any{"capture_bytes": len(req.Audio)}).Debug("turn started")

	// Transcribe
	stageStart := time.Now()
	transcript, sttErr := o.stt.Transcribe(ctx, req.Audio)
	switch {
	case errors.Is(sttErr, stt.ErrNoSpeech):
		return o.silent(result, StatusNoSpeech), nil
	case sttErr != nil:
		o.recorder.ObserveStage(StageTranscribe, o.stt.ServiceName(), time.Since(stageStart), sttErr)
		o.fail(logger, result, StageTranscribe, o.stt.ServiceName(), sttErr)
		return o.silent(result, StatusTranscriptionFailed), nil
	}
	o.recorder.ObserveStage(StageTranscribe, o.stt.ServiceName(), time.Since(stageStart), nil)
	result.Transcript = transcript
	if transcript == "" {
		return o.silent(result, StatusNoSpeech), nil
	}

	// Chat
	history, _ := o.store.AppendUserTurn(result.SessionID, transcript)
	stageStart = time.Now()
	reply, llmErr := o.llm.Reply(ctx, history)
	o.recorder.ObserveStage(StageChat, o.llm.ServiceName(), time.Since(stageStart), llmErr)
	if llmErr != nil {
		o.fail(logger, result, StageChat, o.llm.ServiceName(), llmErr)
		return o.silent(result, StatusChatFailed), nil
	}
	result.Reply = reply
	if reply == "" {
		return o.silent(result, StatusNoReply), nil
	}
	o.store.AppendAssistantTurn(result.SessionID, reply)

	// Synthesize
	stageStart = time.Now()
	wav, ttsErr := o.tts.Synthesize(ctx, reply)
	if errors.Is(ttsErr, tts.ErrEmptyText) {
		o.recorder.ObserveStage(StageSynthesize, o.tts.ServiceName(), time.Since(stageStart), nil)
		return o.silent(result, StatusNoReply), nil
	}
	o.recorder.ObserveStage(StageSynthesize, o.tts.ServiceName(), time.Since(stageStart), ttsErr)
	if ttsErr != nil {
		o.fail(logger, result, StageSynthesize, o.tts.ServiceName(), ttsErr)
		result.Status = StatusSynthesisFailed
		return result, &StageError{Stage: StageSynthesize, Service: o.tts.ServiceName(), Err: ttsErr}
	}

	result.Status = StatusCompleted
	result.Audio = wav
	return result, nil
}

func (o *Orchestrator) silent(result *TurnResult, status Status) *TurnResult {
	result.Status = status
	result.Audio = append([]byte(nil), o.silence...)
	return result
}

func (o *Orchestrator) fail(logger *core.Logger, result *TurnResult, stage Stage, service string, err error) {
	result.Failures = append(result.Failures, StageFailure{Stage: stage, Service: service, Error: err.Error()})
	logger.With(map[string]any{"stage": string(stage), "service": service, "error": err}).Warn("stage failed")
}
