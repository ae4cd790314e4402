package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExplain(t *testing.T) {
	body := `{"classification_id":"c-1","verdict":"malicious","confidence":"high","reasons":["reputation 5"],"advice":"block"}`
	srv := chatServer(t, http.StatusOK, body)

	c := NewClientWithBaseURL("sk-test", "", srv.URL)
	got, err := c.Explain(context.Background(), `{"id":"c-1"}`)
	require.NoError(t, err)
	assert.JSONEq(t, body, got)
}

func TestExplain_invalidAnswer(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "not json")
	_, err := NewClientWithBaseURL("sk-test", "", srv.URL).Explain(context.Background(), "{}")
	assert.Error(t, err)
}

func TestExplain_quota(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	c := NewClientWithBaseURL("sk-test", "", srv.URL)
	_, err := c.Explain(context.Background(), "{}")
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))
}
