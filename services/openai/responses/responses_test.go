package responses

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

func TestExtractReplyText(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		want  string
		shape ReplyShape
	}{
		{"output_text helper", `{"output_text":" Selam! "}`, "Selam!", ShapeOutputText},
		{"output_text object", `{"output_text":{"value":"Selam!"}}`, "Selam!", ShapeOutputText},
		{
			"output list",
			`{"output":[{"type":"reasoning"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Selam"},{"type":"output_text","text":"!"}]}]}`,
			"Selam!", ShapeOutputList,
		},
		{
			"output list object text",
			`{"output":[{"type":"message","content":[{"type":"output_text","text":{"value":"Hi there"}}]}]}`,
			"Hi there", ShapeOutputList,
		},
		{
			"output list skips refusal",
			`{"output":[{"type":"message","content":[{"type":"refusal","text":"no"}]}],"choices":[{"message":{"content":"fallback"}}]}`,
			"fallback", ShapeChoices,
		},
		{"choices", `{"choices":[{"message":{"role":"assistant","content":"Selam!"}}]}`, "Selam!", ShapeChoices},
		{"choices parts", `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, "ab", ShapeChoices},
		{"output_text wins", `{"output_text":"first","choices":[{"message":{"content":"second"}}]}`, "first", ShapeOutputText},
		{"blank output_text falls through", `{"output_text":"  ","choices":[{"message":{"content":"second"}}]}`, "second", ShapeChoices},
		{"nothing", `{"id":"resp_1","output":[]}`, "", ShapeNone},
		{"null content", `{"choices":[{"message":{"content":null}}]}`, "", ShapeNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, shape, err := ExtractReplyText([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, text)
			assert.Equal(t, tc.shape, shape)
		})
	}

	_, _, err := ExtractReplyText([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompleteBuildsRequest(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"Selam!"}]}]}`))
	}))
	defer srv.Close()

	svc, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1/"}, nil)
	require.NoError(t, err)

	reply, err := svc.Complete(context.Background(), []core.LLMMessage{
		{Role: core.LLMMessageRoleSystem, Message: "be brief"},
		{Role: core.LLMMessageRoleUser, Message: "merhaba"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Selam!", reply)

	assert.Equal(t, "be brief", got.Instructions)
	assert.Equal(t, []inputMessage{{Role: "user", Content: "merhaba"}}, got.Input)
	assert.False(t, got.Store)
}

func TestCompleteNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	svc, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), nil)
	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Equal(t, "upstream down", perr.Message)
}
