package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

type JobsHandler struct {
	store *store.Store
}

func NewJobsHandler(st *store.Store) *JobsHandler {
	return &JobsHandler{store: st}
}

// ListJobs returns all jobs, optionally filtered by ?status=.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := models.StatusAll
	if q := r.URL.Query().Get("status"); q != "" {
		status = models.Status(q)
		if !models.ValidFilter(status) {
			writeError(w, http.StatusBadRequest, "invalid status filter: "+q)
			return
		}
	}

	jobs, err := h.store.GetJobs(r.Context(), status)
	if err != nil {
		log.Printf("failed to list jobs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob returns a single job by ID.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		log.Printf("failed to get job: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, models.ErrNoSuchJob.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type createJobRequest struct {
	Action    string `json:"action"`
	Args      string `json:"args"`
	Initiator string `json:"initiator"`
}

// CreateJob creates a job from an action name and arguments. When the
// request is authenticated, the token subject overrides any initiator
// named in the body.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	initiator := req.Initiator
	if sub := InitiatorFrom(r.Context()); sub != "" {
		initiator = sub
	}

	id, err := h.store.CreateJob(r.Context(), req.Action, req.Args, initiator)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ConfirmJob releases a pending job for execution.
func (h *JobsHandler) ConfirmJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.ConfirmJob(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"confirmed": id})
}

// CancelJob cancels a pending job.
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.CancelJob(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"canceled": id})
}
