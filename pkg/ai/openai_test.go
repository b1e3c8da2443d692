package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIClientCompleteReturnsFirstChoice(t *testing.T) {
	server := newTestOpenAIServer(t, http.StatusOK, map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "  {\"score\": 1}  "},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7},
	})

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), "grade this")
	require.NoError(t, err)
	require.Equal(t, `{"score": 1}`, content)
}

func TestOpenAIClientCompleteClassifiesServerErrors(t *testing.T) {
	server := newTestOpenAIServer(t, http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]string{"message": "boom", "type": "server_error"},
	})

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "grade this")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInferenceUnavailable))
}

func TestOpenAIClientCompleteRejectsEmptyChoices(t *testing.T) {
	server := newTestOpenAIServer(t, http.StatusOK, map[string]interface{}{
		"id":      "chatcmpl-2",
		"object":  "chat.completion",
		"model":   "gpt-4o-mini",
		"choices": []interface{}{},
	})

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "grade this")
	require.True(t, errors.Is(err, ErrInferenceUnavailable))
}

func TestNewClientWithoutCredentialsReturnsNil(t *testing.T) {
	client, err := NewClient(context.Background(), Config{Provider: "openai"})
	require.NoError(t, err)
	require.Nil(t, client)

	_, err = NewClient(context.Background(), Config{Provider: "llama"})
	require.Error(t, err)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)
}
