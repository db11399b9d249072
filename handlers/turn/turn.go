package turn

import (
	"errors"
	"fmt"
	"time"
)

type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageChat       Stage = "chat"
	StageSynthesize Stage = "synthesize"
)

// Status is the terminal outcome of a turn.
type Status string

const (
	StatusCompleted           Status = "completed"
	StatusNoSpeech            Status = "no_speech"
	StatusTranscriptionFailed Status = "transcription_failed"
	StatusChatFailed          Status = "chat_failed"
	StatusNoReply             Status = "no_reply"
	StatusSynthesisFailed     Status = "synthesis_failed"
)

// ErrSynthesisFailed matches any *StageError raised by the synthesis stage.
var ErrSynthesisFailed = errors.New("turn: synthesis failed")

// StageError is returned from Run when a turn cannot produce audio.
type StageError struct {
	Stage   Stage
	Service string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("turn: %s stage (%s): %v", e.Stage, e.Service, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	return target == ErrSynthesisFailed && e.Stage == StageSynthesize
}

// StageFailure is the diagnostic record of a stage that degraded instead of aborting.
type StageFailure struct {
	Stage   Stage  `json:"stage"`
	Service string `json:"service"`
	Error   string `json:"error"`
}

type TurnRequest struct {
	SessionID string
	Audio     []byte // Raw PCM16 capture in the configured capture format.
}

// TurnResult is what a transport sends back to the device. Audio is always a
// complete WAV file unless Status is StatusSynthesisFailed, in which case it is nil.
type TurnResult struct {
	TurnID        string         `json:"turn_id"`
	SessionID     string         `json:"session_id"`
	Status        Status         `json:"status"`
	Transcript    string         `json:"transcript"`
	Reply         string         `json:"reply"`
	Audio         []byte         `json:"-"`
	ContentLength int            `json:"content_length"`
	Failures      []StageFailure `json:"failures,omitempty"`
	Duration      time.Duration  `json:"duration"`
}

// Silent reports whether the result carries a header-only WAV.
func (r *TurnResult) Silent() bool {
	return r.Status != StatusCompleted && r.Status != StatusSynthesisFailed
}

// Recorder receives per-stage and per-turn observations. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStage(stage Stage, service string, elapsed time.Duration, err error)
	ObserveTurn(status Status, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(Stage, string, time.Duration, error) {}
func (nopRecorder) ObserveTurn(Status, time.Duration)                {}
