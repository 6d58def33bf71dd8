package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "{\"resposta\":\"Olá\",\"perguntasDinamicas\":[]}"},
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
}`

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "path %s", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{
		System: []string{"Você é um assistente."},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "Oi"},
			{Role: ChatRoleAssistant, Content: "Olá!"},
			{Role: ChatRoleUser, Content: "Quais serviços?"},
		},
		MaxTokens:   250,
		Temperature: 0.4,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"resposta":"Olá","perguntasDinamicas":[]}`, resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, int32(20), resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.EqualValues(t, 250, captured["max_tokens"])
	assert.InDelta(t, 0.4, captured["temperature"], 0.0001)
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[2].(map[string]any)["role"])
}

func TestOpenAIClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Oi"}},
	})
	require.Error(t, err)
}

func TestOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoMessages)

	_, err = client.Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: "tool", Content: "x"}},
	})
	assert.ErrorContains(t, err, "unsupported role")
}
