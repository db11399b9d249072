package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicebridge/core"
	"voicebridge/utils/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTT struct {
	text   string
	err    error
	calls  int
	wav    []byte
	format core.AudioFormat
	block  bool
}

func (f *fakeSTT) Name() string { return "fake" }

func (f *fakeSTT) Transcribe(ctx context.Context, wav []byte, format core.AudioFormat) (string, error) {
	f.calls++
	f.wav = wav
	f.format = format
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func TestTranscribeBelowThresholdIsNoSpeech(t *testing.T) {
	svc := &fakeSTT{text: "never"}
	h, err := NewSTTHandler(svc, DefaultConfig(), nil)
	require.NoError(t, err)

	for _, n := range []int{0, 500, 999} {
		text, err := h.Transcribe(context.Background(), make([]byte, n))
		assert.ErrorIs(t, err, ErrNoSpeech)
		assert.Empty(t, text)
	}
	assert.Equal(t, 0, svc.calls)
}

func TestTranscribeSendsWAVAtRequiredFormat(t *testing.T) {
	svc := &fakeSTT{text: "  merhaba \n"}
	h, err := NewSTTHandler(svc, DefaultConfig(), nil)
	require.NoError(t, err)

	capture := make([]byte, 1000)
	text, err := h.Transcribe(context.Background(), capture)
	require.NoError(t, err)
	assert.Equal(t, "merhaba", text)

	c, err := audio.DecodeWAV(svc.wav)
	require.NoError(t, err)
	assert.Equal(t, core.AudioFormat{SampleRate: 16000, Channels: 1}, c.Format)
	assert.Equal(t, capture, c.Data)
	assert.Equal(t, c.Format, svc.format)
}

func TestTranscribeResamplesCapture(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureFormat = core.AudioFormat{SampleRate: 48000, Channels: 2}
	svc := &fakeSTT{text: "ok"}
	h, err := NewSTTHandler(svc, cfg, nil)
	require.NoError(t, err)

	// 4800 stereo frames at 48 kHz -> 1600 mono samples at 16 kHz.
	_, err = h.Transcribe(context.Background(), make([]byte, 4800*4))
	require.NoError(t, err)

	c, err := audio.DecodeWAV(svc.wav)
	require.NoError(t, err)
	assert.Equal(t, cfg.RequiredFormat, c.Format)
	assert.Equal(t, 3200, c.DataLength())
}

func TestTranscribeWrapsServiceError(t *testing.T) {
	boom := errors.New("boom")
	h, err := NewSTTHandler(&fakeSTT{err: boom}, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = h.Transcribe(context.Background(), make([]byte, 2000))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoSpeech)
}

func TestTranscribeHonoursTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	h, err := NewSTTHandler(&fakeSTT{block: true}, cfg, nil)
	require.NoError(t, err)

	_, err = h.Transcribe(context.Background(), make([]byte, 2000))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewSTTHandlerValidates(t *testing.T) {
	_, err := NewSTTHandler(nil, DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.RequiredFormat.Channels = 0
	_, err = NewSTTHandler(&fakeSTT{}, cfg, nil)
	assert.Error(t, err)
}

func TestTranscribePassesMatchingCaptureThrough(t *testing.T) {
	svc := &fakeSTT{text: "ok"}
	h, err := NewSTTHandler(svc, DefaultConfig(), nil)
	require.NoError(t, err)

	capture := make([]byte, 1001)
	for i := range capture {
		capture[i] = byte(i * 7)
	}
	_, err = h.Transcribe(context.Background(), capture)
	require.NoError(t, err)

	want := audio.EncodeWAV(audio.BytesToPCM(capture, 16000, 1))
	assert.Equal(t, want, svc.wav)

	c, err := audio.DecodeWAV(svc.wav)
	require.NoError(t, err)
	assert.Equal(t, capture[:1000], c.Data)
}
