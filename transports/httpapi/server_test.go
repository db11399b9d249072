package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	contexthandler "voicebridge/handlers/context"
	"voicebridge/handlers/turn"
	"voicebridge/metrics"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	requests []turn.TurnRequest
	result   *turn.TurnResult
	err      error
}

func (f *fakeRunner) Run(_ context.Context, req turn.TurnRequest) (*turn.TurnResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func newTestServer(t *testing.T, runner *fakeRunner, maxCapture int64) (*httptest.Server, *contexthandler.ConversationStore, *metrics.Metrics) {
	t.Helper()
	store, err := contexthandler.NewConversationStore(contexthandler.DefaultConversationStoreConfig(), nil)
	require.NoError(t, err)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	cfg := DefaultConfig()
	cfg.MaxCaptureBytes = maxCapture
	srv := httptest.NewServer(NewServer(cfg, runner, store, m, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, store, m
}

func TestTurnReturnsWAVWithHeaders(t *testing.T) {
	wav := bytes.Repeat([]byte{1}, 64)
	runner := &fakeRunner{result: &turn.TurnResult{
		TurnID:        "turn-1",
		SessionID:     "kitchen",
		Status:        turn.StatusCompleted,
		Transcript:    "merhaba dünya",
		Reply:         "Selam, nasılsın?",
		Audio:         wav,
		ContentLength: len(wav),
	}}
	srv, _, m := newTestServer(t, runner, 1024)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/turn", bytes.NewReader(make([]byte, 100)))
	req.Header.Set(HeaderSessionID, "kitchen")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(64), resp.ContentLength)
	assert.Equal(t, wav, body)
	assert.Equal(t, "turn-1", resp.Header.Get(HeaderTurnID))
	assert.Equal(t, "completed", resp.Header.Get(HeaderTurnStatus))
	assert.Equal(t, "false", resp.Header.Get(HeaderTurnSilent))

	transcript, err := url.PathUnescape(resp.Header.Get(HeaderTranscript))
	require.NoError(t, err)
	assert.Equal(t, "merhaba dünya", transcript)
	reply, err := url.PathUnescape(resp.Header.Get(HeaderReply))
	require.NoError(t, err)
	assert.Equal(t, "Selam, nasılsın?", reply)

	require.Len(t, runner.requests, 1)
	assert.Equal(t, "kitchen", runner.requests[0].SessionID)
	assert.Len(t, runner.requests[0].Audio, 100)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/turn", "200")))
}

func TestTurnSessionFromQuery(t *testing.T) {
	runner := &fakeRunner{result: &turn.TurnResult{Status: turn.StatusNoSpeech, Audio: make([]byte, 44), ContentLength: 44}}
	srv, _, _ := newTestServer(t, runner, 1024)

	resp, err := http.Post(srv.URL+"/turn?session=garage", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(44), resp.ContentLength)
	assert.Equal(t, "true", resp.Header.Get(HeaderTurnSilent))
	require.Len(t, runner.requests, 1)
	assert.Equal(t, "garage", runner.requests[0].SessionID)
}

func TestTurnSynthesisFailureIs502(t *testing.T) {
	runner := &fakeRunner{
		result: &turn.TurnResult{TurnID: "turn-2", Status: turn.StatusSynthesisFailed, Transcript: "hi", Reply: "hello"},
		err:    &turn.StageError{Stage: turn.StageSynthesize, Service: "fake-tts", Err: errors.New("503")},
	}
	srv, _, m := newTestServer(t, runner, 1024)

	resp, err := http.Post(srv.URL+"/turn", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body errorResponse
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, sonic.Unmarshal(data, &body))
	assert.Equal(t, "turn-2", body.TurnID)
	assert.Equal(t, turn.StatusSynthesisFailed, body.Status)
	assert.Equal(t, "hello", body.Reply)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPErrors.WithLabelValues("POST", "/turn", "server_error")))
}

func TestTurnRejectsOversizedCapture(t *testing.T) {
	runner := &fakeRunner{}
	srv, _, _ := newTestServer(t, runner, 10)

	resp, err := http.Post(srv.URL+"/turn", "application/octet-stream", bytes.NewReader(make([]byte, 11)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, runner.requests)
}

func TestTurnRequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, 10)
	resp, err := http.Get(srv.URL + "/turn")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSessionHistoryAndReset(t *testing.T) {
	srv, store, _ := newTestServer(t, &fakeRunner{}, 10)
	store.AppendUserTurn("kitchen", "merhaba")
	store.AppendAssistantTurn("kitchen", "Selam!")

	resp, err := http.Get(srv.URL + "/sessions/kitchen")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"session_id":"kitchen","turns":[{"role":"user","message":"merhaba"},{"role":"assistant","message":"Selam!"}]}`, string(data))

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/kitchen", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.HistoryFor("kitchen"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, 10)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"healthy"`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
