package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fixter/internal/vars"
)

// VarStore is the variable store surface used by the API.
type VarStore interface {
	List() ([]vars.Var, error)
	Set(name, value string) error
	Unset(name string) error
}

// SetVarRequest is the body of PUT /api/v1/vars/{name}.
type SetVarRequest struct {
	Value string `json:"value" validate:"max=4096"`
}

const varNameRules = "required,max=64,varname"

// VarsHandler serves user variables.
type VarsHandler struct {
	store VarStore
}

// NewVarsHandler creates a vars handler.
func NewVarsHandler(store VarStore) *VarsHandler {
	return &VarsHandler{store: store}
}

// RegisterRoutes registers variable routes.
func (h *VarsHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/api/v1/vars").Subrouter()
	sub.HandleFunc("", h.HandleList).Methods(http.MethodGet)
	sub.HandleFunc("/{name}", h.HandleSet).Methods(http.MethodPut)
	sub.HandleFunc("/{name}", h.HandleUnset).Methods(http.MethodDelete)
}

// HandleList returns all variables sorted by name.
func (h *VarsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List()
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if list == nil {
		list = []vars.Var{}
	}
	SendJSON(w, http.StatusOK, map[string]any{"vars": list})
}

// HandleSet stores a variable.
func (h *VarsHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := validate.Var(name, varNameRules); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid variable name: "+name)
		return
	}
	var req SetVarRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.store.Set(name, req.Value); err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	SendJSON(w, http.StatusOK, vars.Var{Name: name, Value: req.Value})
}

// HandleUnset removes a variable.
func (h *VarsHandler) HandleUnset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	err := h.store.Unset(name)
	if errors.Is(err, vars.ErrNotFound) {
		SendError(w, http.StatusNotFound, ErrCodeNotFound, "variable not found: "+name)
		return
	}
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
