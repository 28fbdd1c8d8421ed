package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/store"
)

// ListFlows handles GET /v1/flows?sort=&domain=&q=
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	flows, err := h.coord.ListFlows(r.Context(), store.ListOptions{
		Sort:   store.SortOrder(q.Get("sort")),
		Domain: q.Get("domain"),
		Search: q.Get("q"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

type nameRequest struct {
	Name string `json:"name"`
}

// SaveFlow handles POST /v1/flows, saving the last stopped recording.
func (h *Handler) SaveFlow(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.coord.SaveRecording(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetFlow handles GET /v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.coord.GetFlow(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RenameFlow handles PATCH /v1/flows/{id}
func (h *Handler) RenameFlow(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.coord.RenameFlow(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteFlow handles DELETE /v1/flows/{id}
func (h *Handler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.DeleteFlow(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateFlow handles POST /v1/flows/{id}/duplicate
func (h *Handler) DuplicateFlow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.coord.DuplicateFlow(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type tabRequest struct {
	TabID string `json:"tabId"`
	URL   string `json:"url"`
	// External marks a recording whose actions are posted to
	// /v1/recording/actions instead of captured by formflow.
	External bool `json:"external"`
}

// PlayFlow handles POST /v1/flows/{id}/play. It answers when playback
// ends; progress is streamed on /v1/events.
func (h *Handler) PlayFlow(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	report, err := h.coord.PlayFlow(r.Context(), tabOr(req.TabID), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if report.Rejected {
		status = http.StatusConflict
	}
	writeJSON(w, status, report)
}

// Suggestions handles GET /v1/suggestions?url=
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	flows, err := h.coord.FlowsForURL(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

// Stats handles GET /v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.coord.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// RecordingStatus handles GET /v1/recording
func (h *Handler) RecordingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Status())
}

// StartRecording handles POST /v1/recording/start
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	start := h.coord.StartRecording
	if req.External {
		start = h.coord.StartExternalRecording
	}
	st, err := start(r.Context(), tabOr(req.TabID), req.URL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StopRecording handles POST /v1/recording/stop
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	actions := h.coord.StopRecording(r.Context())
	if actions == nil {
		actions = flow.Actions{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

type actionRequest struct {
	TabID  string          `json:"tabId"`
	Action json.RawMessage `json:"action"`
}

// RecordAction handles POST /v1/recording/actions, accepting actions
// captured by an external recorder.
func (h *Handler) RecordAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	a, err := flow.UnmarshalAction(req.Action)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.coord.RecordAction(tabOr(req.TabID), a); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Export handles GET /v1/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="formflow-export.json"`)
	if _, err := h.coord.Export(r.Context(), w); err != nil {
		h.logger.Errorf("export failed: %v", err)
	}
}

// Import handles POST /v1/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	added, err := h.coord.Import(r.Context(), r.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if added == nil {
		added = []*flow.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": len(added), "flows": added})
}
