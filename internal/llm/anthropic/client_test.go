package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/autoblog/internal/llm"
)

type messagesRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestClientCompleteJoinsTextBlocks(t *testing.T) {
	t.Parallel()

	var got messagesRequest
	var apiKey, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"stop_reason": "end_turn",
			"content": [
				{"type": "text", "text": "# Coffee\n"},
				{"type": "text", "text": "Body"}
			],
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	t.Cleanup(srv.Close)

	client := New(llm.Config{
		BaseURL:     srv.URL,
		APIKey:      "ak-test",
		Model:       "claude-test",
		MaxTokens:   1200,
		Temperature: 0.7,
	})
	text, err := client.Complete(context.Background(), "Write about coffee")

	require.NoError(t, err)
	require.Equal(t, "# Coffee\nBody", text)
	require.Equal(t, "ak-test", apiKey)
	require.Equal(t, "/v1/messages", path)
	require.Equal(t, "claude-test", got.Model)
	require.Equal(t, 1200, got.MaxTokens)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	require.Equal(t, "Write about coffee", got.Messages[0].Content[0].Text)
}

func TestClientCompleteStatusError(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(llm.Config{BaseURL: srv.URL, APIKey: "k", Model: "m", MaxTokens: 10}).
		Complete(context.Background(), "p")

	require.Error(t, err)
	require.ErrorContains(t, err, "anthropic messages")
	require.Equal(t, 1, calls, "retries must be disabled")
}
