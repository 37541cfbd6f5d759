package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

type ActionsHandler struct {
	store *store.Store
}

func NewActionsHandler(st *store.Store) *ActionsHandler {
	return &ActionsHandler{store: st}
}

// ListActions returns every configured action.
func (h *ActionsHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.GetActions(r.Context())
	if err != nil {
		log.Printf("failed to list actions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// GetAction returns a single action by name.
func (h *ActionsHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.GetAction(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		log.Printf("failed to get action: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get action")
		return
	}
	if action == nil {
		writeError(w, http.StatusNotFound, models.ErrNoSuchAction.Error())
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// ListWorkers returns the live worker registry.
func (h *ActionsHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.store.GetWorkers(r.Context())
	if err != nil {
		log.Printf("failed to list workers: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

// ListGroups returns every configured group with its members.
func (h *ActionsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.GetGroups(r.Context())
	if err != nil {
		log.Printf("failed to list groups: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
