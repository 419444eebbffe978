package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/program-generator/internal/config"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", WithBaseURL(server.URL+"/v1"))
	resp, err := p.Complete(context.Background(), Request{
		Model:     "gpt-test",
		Messages:  []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		MaxTokens: 256,
		JSONMode:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-test", body["model"])
	assert.Len(t, body["messages"], 2)
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestOpenAIProvider_RateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk", WithBaseURL(server.URL+"/v1"))
	_, err := p.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(config.GenerationConfig{Provider: "anthropic"})
	assert.Error(t, err, "missing key")

	p, err := NewProvider(config.GenerationConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(config.GenerationConfig{Provider: "openai", APIKey: "k", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(config.GenerationConfig{Provider: "bard", APIKey: "k"})
	assert.Error(t, err)
}
