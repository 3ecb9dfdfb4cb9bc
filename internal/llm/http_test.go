package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "local-7b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key")
	out, err := client.Complete(context.Background(), "say hello", Options{Model: "local-7b"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestCompleteMapsAPIErrorToModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"message": "model is loading", "type": "unavailable"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, err := client.Complete(context.Background(), "hi", Options{Model: "local-7b"})
	require.Error(t, err)

	var merr *ModelError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "local-7b", merr.Model)
	assert.Contains(t, merr.Error(), "model is loading")
}

func TestCompleteMapsEmptyChoicesToModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "cmpl-2", "choices": []}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, err := client.Complete(context.Background(), "hi", Options{Model: "local-7b"})

	var merr *ModelError
	require.True(t, errors.As(err, &merr))
}

func TestProbeUsesSingleToken(t *testing.T) {
	var gotMaxTokens float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := decodeJSON(r, &req); err == nil {
			gotMaxTokens, _ = req["max_tokens"].(float64)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "pong"}}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	require.NoError(t, client.Probe(context.Background(), "local-7b"))
	assert.Equal(t, float64(1), gotMaxTokens)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
