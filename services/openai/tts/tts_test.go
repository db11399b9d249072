package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicebridge/core"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeRequestsPCM(t *testing.T) {
	audio := []byte{1, 0, 2, 0, 3, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, sonic.Unmarshal(body, &req))
		assert.Equal(t, "pcm", req["response_format"])
		assert.Equal(t, "Selam!", req["input"])
		assert.Equal(t, "alloy", req["voice"])

		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	svc, err := NewOpenAITTSService(Config{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	chunk, err := svc.Synthesize(context.Background(), "Selam!")
	require.NoError(t, err)
	assert.Equal(t, core.AudioChunk{Data: audio, SampleRate: 24000, Channels: 1, Format: core.PCM}, chunk)
}

func TestSynthesizeFailsOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	svc, err := NewOpenAITTSService(Config{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	_, err = svc.Synthesize(context.Background(), "hi")
	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
}
