package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON_NoHTMLEscape(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusOK, map[string]string{"answer": "use <b>bold</b> & more"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<b>bold</b> & more")
}

func TestSendJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSendError(t *testing.T) {
	w := httptest.NewRecorder()
	SendError(w, http.StatusNotFound, ErrCodeNotFound, "session not found: abc")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "session not found: abc", resp.Error.Message)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		message string
	}{
		{name: "valid", body: `{"query":"hi","session_id":"s1"}`, ok: true},
		{name: "missing query", body: `{"session_id":"s1"}`, message: "Query: required"},
		{name: "unknown field", body: `{"query":"hi","loop":"x"}`, message: "unknown field"},
		{name: "not json", body: `query=hi`, message: "invalid request body"},
		{name: "session id too long", body: `{"query":"hi","session_id":"` + strings.Repeat("a", 129) + `"}`, message: "SessionID: max=128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var req AskRequest
			ok := decodeBody(w, r, &req)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "hi", req.Query)
				return
			}

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.message)
		})
	}
}
