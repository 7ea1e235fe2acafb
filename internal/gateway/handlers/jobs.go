package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fixter/internal/cron"
)

// JobRunner is the scheduler surface used by the API.
type JobRunner interface {
	List() []cron.JobInfo
	RunNow(ctx context.Context, name string) error
}

// JobsHandler exposes the maintenance jobs.
type JobsHandler struct {
	scheduler JobRunner
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(scheduler JobRunner) *JobsHandler {
	return &JobsHandler{scheduler: scheduler}
}

// RegisterRoutes registers job routes.
func (h *JobsHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/api/v1/jobs").Subrouter()
	sub.HandleFunc("", h.HandleList).Methods(http.MethodGet)
	sub.HandleFunc("/{name}/run", h.HandleRun).Methods(http.MethodPost)
}

// HandleList returns all jobs.
func (h *JobsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	SendJSON(w, http.StatusOK, map[string]any{"jobs": h.scheduler.List()})
}

// HandleRun executes a job immediately.
func (h *JobsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	err := h.scheduler.RunNow(r.Context(), name)
	switch {
	case err == nil:
		SendJSON(w, http.StatusOK, map[string]any{"name": name, "status": "completed"})
	case errors.Is(err, cron.ErrJobNotFound):
		SendError(w, http.StatusNotFound, ErrCodeNotFound, "job not found: "+name)
	case errors.Is(err, cron.ErrJobRunning):
		SendError(w, http.StatusConflict, ErrCodeConflict, "job already running: "+name)
	default:
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
