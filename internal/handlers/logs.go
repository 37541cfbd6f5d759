package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type LogsHandler struct {
	store *store.Store
}

func NewLogsHandler(st *store.Store) *LogsHandler {
	return &LogsHandler{store: st}
}

// GetLog serves a job's log. The default mode returns the persisted
// entries as a JSON array; ?follow=true switches to a chunked text stream
// that follows the live channel until the job's log completes.
func (h *LogsHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		log.Printf("failed to get job %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, models.ErrNoSuchJob.Error())
		return
	}

	if r.URL.Query().Get("follow") != "true" {
		lines, err := h.store.GetStoredLog(r.Context(), id, true)
		if err != nil {
			log.Printf("failed to read log %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to read log")
			return
		}
		writeJSON(w, http.StatusOK, lines)
		return
	}

	stored, live, err := h.store.GetLog(r.Context(), id, true)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	for _, line := range stored {
		w.Write([]byte(line + "\n"))
	}
	flusher.Flush()

	if live == nil {
		return
	}
	for line := range live {
		if _, err := w.Write([]byte(line + "\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

// StreamLogWS serves a job's log over a websocket, one entry per text
// message, closing once the completion sentinel is observed.
func (h *LogsHandler) StreamLogWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	stored, live, err := h.store.GetLog(r.Context(), id, true)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	for _, line := range stored {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
	if live != nil {
		for line := range live {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log complete"))
}
