package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/answer-engine/internal/resilience"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-3.1-8b-instant", body["model"])
		assert.InDelta(t, 0.9, body["top_p"], 1e-6)
		assert.Equal(t, float64(800), body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "FINAL ANSWER: Paris"}}},
			"usage":   map[string]any{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
		})
	}))
	defer ts.Close()

	g := NewOpenAIGenerator("test-key", ts.URL, "llama-3.1-8b-instant")
	out, err := g.Generate(context.Background(), Request{
		Purpose: "qa",
		System:  "You answer questions.",
		Prompt:  "Capital of France?",
		Params:  Params{Temperature: 0.2, TopP: 0.9, MaxTokens: 800, Stop: []string{"\n\n\n"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "FINAL ANSWER: Paris", out)
}

func TestOpenAIGenerator_RateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"},
		})
	}))
	defer ts.Close()

	_, err := NewOpenAIGenerator("k", ts.URL, "m").Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimited(err))
	assert.True(t, resilience.IsTransient(err))
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer ts.Close()

	_, err := NewOpenAIGenerator("k", ts.URL, "m").Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestTemperatureZeroIsSent(t *testing.T) {
	assert.Greater(t, temperature(0), float32(0))
	assert.Equal(t, float32(0.7), temperature(0.7))
}
