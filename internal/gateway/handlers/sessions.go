package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fixter/internal/session"
)

// SessionStore is the session manager surface used by the API.
type SessionStore interface {
	List() ([]session.Summary, error)
	Get(id string, create bool) (*session.Session, error)
	Delete(id string) error
}

// SessionsHandler serves session listings and details.
type SessionsHandler struct {
	store SessionStore
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(store SessionStore) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// RegisterRoutes registers session routes.
func (h *SessionsHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/api/v1/sessions").Subrouter()
	sub.HandleFunc("", h.HandleList).Methods(http.MethodGet)
	sub.HandleFunc("/{id}", h.HandleGet).Methods(http.MethodGet)
	sub.HandleFunc("/{id}", h.HandleDelete).Methods(http.MethodDelete)
}

// HandleList returns all sessions, most recent first.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List()
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	SendJSON(w, http.StatusOK, map[string]any{
		"sessions": list,
		"count":    len(list),
	})
}

// HandleGet returns one session in full.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.store.Get(id, false)
	if errors.Is(err, session.ErrNotFound) {
		SendError(w, http.StatusNotFound, ErrCodeNotFound, "session not found: "+id)
		return
	}
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	SendJSON(w, http.StatusOK, s)
}

// HandleDelete removes a session.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.store.Delete(id)
	if errors.Is(err, session.ErrNotFound) {
		SendError(w, http.StatusNotFound, ErrCodeNotFound, "session not found: "+id)
		return
	}
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
