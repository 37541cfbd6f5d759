// Package handlers maps the HTTP boundary onto the coordination store.
// Every route consumes store operations only; no handler talks to a
// worker directly.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vektorlab/multivac/internal/models"
)

// Version is reported by the /version endpoint and startup banners.
const Version = "1.0.0"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the store's validation failures onto HTTP status
// codes and surfaces their text verbatim.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNoSuchAction), errors.Is(err, models.ErrNoSuchJob):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNoWorkers):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetVersion reports the server version.
func GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}
