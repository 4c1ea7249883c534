package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *DoubaoClient {
	return NewDoubaoClient(DoubaoConfig{
		BaseURL:        baseURL,
		Model:          "doubao-model",
		Temperature:    0.7,
		MaxTokens:      2000,
		RequestTimeout: 2 * time.Second,
	})
}

func TestDoubaoAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "doubao-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "What is the past tense of go?", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "The past tense of go is went."}},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.Ask(context.Background(), "sk-test", "What is the past tense of go?")
	require.NoError(t, err)
	assert.Equal(t, "The past tense of go is went.", answer.Text)
	assert.Equal(t, 42, answer.TokensUsed)
}

func TestDoubaoAskUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.Ask(context.Background(), "sk-test", "hello")
	assert.Nil(t, answer)
	require.True(t, IsUpstream(err))

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
}

func TestDoubaoAskMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.Ask(context.Background(), "sk-test", "hello")
	assert.Nil(t, answer)
	assert.True(t, IsUpstream(err))
}

func TestDoubaoAskEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{},
			"usage":   map[string]int{"total_tokens": 0},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer, err := client.Ask(context.Background(), "sk-test", "hello")
	assert.Nil(t, answer)
	assert.True(t, IsUpstream(err))
}

func TestDoubaoAskTransportError(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	answer, err := client.Ask(context.Background(), "sk-test", "hello")
	assert.Nil(t, answer)
	assert.True(t, IsUpstream(err))
}
