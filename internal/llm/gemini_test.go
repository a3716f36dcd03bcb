package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	var got map[string]any
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Answer: "}, {"text": "Hello!"}]}}],
			"usageMetadata": {"promptTokenCount": 11, "candidatesTokenCount": 4}
		}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:          "test-key",
		Model:           "gemini-test",
		BaseURL:         srv.URL,
		MaxOutputTokens: 256,
		Temperature:     0.2,
	}, silentLog())
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), CompletionRequest{
		System: "You are Matrix.",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "Answer: hello"},
			{Role: RoleUser, Content: "again"},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-test:generateContent"), gotPath)
	assert.Equal(t, "Answer: Hello!", resp.Content)
	assert.Equal(t, 11, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)

	contents := got["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.NotNil(t, got["systemInstruction"])
}

func TestGeminiComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error": {"code": 503, "message": "overloaded", "status": "UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "k", BaseURL: srv.URL}, silentLog())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.Error(t, err)
	assert.True(t, isRetryable(err))
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{}, silentLog())
	assert.Error(t, err)
}
