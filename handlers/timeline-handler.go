package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/guslozua/bitacora-sync/models"
	"github.com/guslozua/bitacora-sync/timeline"
)

type TimelineHandler struct {
	Reconciler *timeline.Reconciler
}

func NewTimelineHandler(reconciler *timeline.Reconciler) *TimelineHandler {
	return &TimelineHandler{Reconciler: reconciler}
}

type draftRequest struct {
	Titulo           string `json:"titulo"`
	Descripcion      string `json:"descripcion"`
	Prioridad        string `json:"prioridad"`
	FechaInicio      string `json:"fecha_inicio"`
	FechaVencimiento string `json:"fecha_vencimiento"`
}

func (d draftRequest) toDraft() (timeline.Draft, error) {
	start, err := time.Parse("2006-01-02", d.FechaInicio)
	if err != nil {
		return timeline.Draft{}, models.NewValidationError("invalid fecha_inicio: %q", d.FechaInicio)
	}
	end, err := time.Parse("2006-01-02", d.FechaVencimiento)
	if err != nil {
		return timeline.Draft{}, models.NewValidationError("invalid fecha_vencimiento: %q", d.FechaVencimiento)
	}
	return timeline.Draft{
		Title:       d.Titulo,
		Description: d.Descripcion,
		Priority:    d.Prioridad,
		Start:       start,
		End:         end,
	}, nil
}

// GetRows returns the timeline projection, collapsed subtrees skipped.
func (h *TimelineHandler) GetRows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": h.Reconciler.Rows()})
}

// GetLines returns the dependency connector lines for the current rows,
// computed from the same date-to-pixel mapping that positions the bars.
func (h *TimelineHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	origin, err := time.Parse("2006-01-02", r.URL.Query().Get("origin"))
	if err != nil {
		http.Error(w, "Invalid origin date", http.StatusBadRequest)
		return
	}
	pixelsPerDay, err := strconv.ParseFloat(r.URL.Query().Get("pixelsPerDay"), 64)
	if err != nil || pixelsPerDay <= 0 {
		pixelsPerDay = 24
	}
	rowHeight, err := strconv.ParseFloat(r.URL.Query().Get("rowHeight"), 64)
	if err != nil || rowHeight <= 0 {
		rowHeight = 32
	}

	rows := h.Reconciler.Rows()
	scale := timeline.Scale{Origin: origin, PixelsPerDay: pixelsPerDay}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lines": timeline.ProjectLines(rows, scale, rowHeight),
	})
}

// SetProgress applies a progress-bar edit.
func (h *TimelineHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Progress int `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.Reconciler.SetProgress(r.Context(), key, req.Progress); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MarkComplete is the progress=100 shortcut.
func (h *TimelineHandler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := h.Reconciler.MarkComplete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreateTask creates a task under a project after the date gate.
func (h *TimelineHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	projectKey := mux.Vars(r)["key"]
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := h.Reconciler.CreateTask(r.Context(), projectKey, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "id": id})
}

// CreateSubtask creates a subtask under a task after the date gate.
func (h *TimelineHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	taskKey := mux.Vars(r)["key"]
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := h.Reconciler.CreateSubtask(r.Context(), taskKey, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "id": id})
}

// Delete removes an entity; children disappear with the server-side
// cascade on the next refetch.
func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := h.Reconciler.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetExpanded toggles the hideChildren display state for a row.
func (h *TimelineHandler) SetExpanded(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Expanded bool `json:"expanded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	h.Reconciler.SetExpanded(key, req.Expanded)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Refresh forces a full refetch-and-rebuild.
func (h *TimelineHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Reconciler.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
