package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	cfg := config.AIConfig{
		BaseURL:        server.URL,
		APIKey:         "sk-test",
		Model:          "gpt-test",
		MaxTokens:      100,
		TimeoutSeconds: 5,
	}
	return NewClient(cfg, zap.NewNop()), server
}

func TestComplete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-test", body.Model)
			assert.Equal(t, 100, body.MaxTokens)
			require.Len(t, body.Messages, 1)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"gpt-test","choices":[{"message":{"role":"assistant","content":"  hello  "}}],"usage":{"total_tokens":12}}`))
		})
		defer server.Close()

		resp, err := client.Complete(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, 12, resp.Usage.TotalTokens)
	})

	t.Run("StatusPassthrough", func(t *testing.T) {
		client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		})
		defer server.Close()

		_, err := client.Complete(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
		status, ok := provider.StatusOf(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusPaymentRequired, status)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		client := NewClient(config.AIConfig{BaseURL: "http://127.0.0.1:0"}, zap.NewNop())
		_, err := client.Complete(context.Background(), ChatRequest{})
		assert.ErrorIs(t, err, provider.ErrNotConfigured)
	})
}
