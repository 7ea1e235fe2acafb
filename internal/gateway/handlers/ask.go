package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fixter/internal/assistant"
	"fixter/pkg/logger"
)

// Asker answers a query within a session.
type Asker interface {
	Process(ctx context.Context, query, sessionID string) (assistant.Result, error)
}

// Interpolator expands {name} placeholders.
type Interpolator interface {
	Interpolate(text string) (string, error)
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Query     string `json:"query" validate:"required,max=16000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii"`
}

// AskHandler runs queries through the assistant.
type AskHandler struct {
	asker Asker
	vars  Interpolator
}

// NewAskHandler creates an ask handler. vars may be nil.
func NewAskHandler(asker Asker, vars Interpolator) *AskHandler {
	return &AskHandler{asker: asker, vars: vars}
}

// RegisterRoutes registers the ask route.
func (h *AskHandler) RegisterRoutes(router *mux.Router, wrap func(http.Handler) http.Handler) {
	var handler http.Handler = http.HandlerFunc(h.HandleAsk)
	if wrap != nil {
		handler = wrap(handler)
	}
	router.Handle("/api/v1/ask", handler).Methods(http.MethodPost)
}

// HandleAsk answers one query.
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	query := req.Query
	if h.vars != nil {
		expanded, err := h.vars.Interpolate(query)
		if err != nil {
			logger.Warn().Err(err).Msg("Variable interpolation failed, using raw query")
		} else {
			query = expanded
		}
	}

	result, err := h.asker.Process(r.Context(), query, req.SessionID)
	switch {
	case err == nil:
		SendJSON(w, http.StatusOK, result)
	case errors.Is(err, context.DeadlineExceeded):
		SendError(w, http.StatusGatewayTimeout, ErrCodeGatewayTimeout, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
		logger.Debug().Str("session_id", req.SessionID).Msg("Ask canceled by client")
	default:
		logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Ask failed")
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
