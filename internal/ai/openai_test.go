package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultOpenAIModel,
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	return c
}

func TestOpenAI_Infer_RequestShape(t *testing.T) {
	var reqBody map[string]any
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody(`{"natural_text": "# หนังสือ"}`))
	})

	got, err := c.Infer(context.Background(), PageRequest{
		Page:     1,
		ImageB64: "iVBORw0KGgo=",
		Prompt:   "Below is an image of a document page",
		TaskType: "default",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"natural_text": "# หนังสือ"}`, got)

	assert.Equal(t, DefaultOpenAIModel, reqBody["model"])
	assert.Equal(t, float64(16384), reqBody["max_tokens"])
	assert.Equal(t, 0.1, reqBody["temperature"])
	assert.Equal(t, 0.6, reqBody["top_p"])
	assert.Equal(t, 1.2, reqBody["repetition_penalty"])

	messages := reqBody["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])

	parts := msg["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "Below is an image of a document page", text["text"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", img["image_url"].(map[string]any)["url"])
}

func TestOpenAI_Infer_EmptyResponses(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			body := completionBody("")
			body["choices"] = []any{}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
		_, err := c.Infer(context.Background(), PageRequest{Page: 1, ImageB64: "AA==", Prompt: "p"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("empty content", func(t *testing.T) {
		c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(completionBody(""))
		})
		_, err := c.Infer(context.Background(), PageRequest{Page: 1, ImageB64: "AA==", Prompt: "p"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestOpenAI_Infer_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := c.Infer(context.Background(), PageRequest{Page: 2, ImageB64: "AA==", Prompt: "p"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAI_NoRepetitionPenaltyWhenZero(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody("ok"))
	}))
	defer srv.Close()

	params := DefaultParams
	params.RepetitionPenalty = 0
	c, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "local-vlm", Params: params}, nil)
	require.NoError(t, err)

	_, err = c.Infer(context.Background(), PageRequest{Page: 1, ImageB64: "AA==", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "local-vlm", reqBody["model"])
	assert.NotContains(t, reqBody, "repetition_penalty")
}
