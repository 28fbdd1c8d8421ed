// Package server exposes the coordinator over HTTP and streams its events
// over a WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/entrhq/formflow/pkg/coordinator"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/store"
)

// DefaultTab is used when a request names no tab.
const DefaultTab = "main"

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	coord  *coordinator.Coordinator
	logger *logging.Logger
}

// NewHandler creates the HTTP handlers for coord.
func NewHandler(coord *coordinator.Coordinator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{coord: coord, logger: logger}
}

// Routes configures all HTTP routes.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/flows", h.ListFlows).Methods("GET")
	api.HandleFunc("/flows", h.SaveFlow).Methods("POST")
	api.HandleFunc("/flows/{id}", h.GetFlow).Methods("GET")
	api.HandleFunc("/flows/{id}", h.RenameFlow).Methods("PATCH")
	api.HandleFunc("/flows/{id}", h.DeleteFlow).Methods("DELETE")
	api.HandleFunc("/flows/{id}/duplicate", h.DuplicateFlow).Methods("POST")
	api.HandleFunc("/flows/{id}/play", h.PlayFlow).Methods("POST")
	api.HandleFunc("/suggestions", h.Suggestions).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	api.HandleFunc("/recording", h.RecordingStatus).Methods("GET")
	api.HandleFunc("/recording/start", h.StartRecording).Methods("POST")
	api.HandleFunc("/recording/stop", h.StopRecording).Methods("POST")
	api.HandleFunc("/recording/actions", h.RecordAction).Methods("POST")

	api.HandleFunc("/export", h.Export).Methods("GET")
	api.HandleFunc("/import", h.Import).Methods("POST")
	api.HandleFunc("/events", h.Events).Methods("GET")

	r.Use(corsMiddleware)
	return r
}

// corsMiddleware adds CORS headers so browser-hosted UIs can call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, coordinator.ErrNothingToSave),
		errors.Is(err, coordinator.ErrNotRecording):
		status = http.StatusConflict
	}
	h.logger.Debugf("request failed with %d: %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		// Empty bodies select the defaults.
		return nil
	}
	if err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func tabOr(tab string) string {
	if tab == "" {
		return DefaultTab
	}
	return tab
}
