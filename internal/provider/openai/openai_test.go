package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fixter/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string, inspect func(map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if inspect != nil {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestProvider_Chat(t *testing.T) {
	server := newServer(t, http.StatusOK, `{
		"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
		"choices":[{"index":0,"message":{"role":"assistant","content":"Thought: done\nFinal Answer: 42"},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":7,"completion_tokens":5,"total_tokens":12}
	}`, func(req map[string]any) {
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Equal(t, []any{"\nObservation"}, req["stop"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	})
	defer server.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	resp, err := p.Chat(context.Background(), provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "q"}},
		Stop:     []string{"\nObservation"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Thought: done\nFinal Answer: 42", resp.Content)
	assert.Equal(t, provider.FinishReasonStop, resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestProvider_ChatErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      provider.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, provider.ErrCodeAuthFailed, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, provider.ErrCodeRateLimited, true},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, provider.ErrCodeServiceUnavailable, true},
		{"no choices", http.StatusOK, `{"id":"c1","choices":[]}`, provider.ErrCodeEmptyResponse, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.status, tt.body, nil)
			defer server.Close()

			_, err := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"}).Chat(context.Background(), provider.ChatRequest{})
			require.Error(t, err)
			var pe *provider.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
		})
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, []string{DefaultModel}, p.Models())
}
