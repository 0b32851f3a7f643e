package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guslozua/bitacora-sync/assignments"
	"github.com/guslozua/bitacora-sync/models"
)

type AssignmentHandler struct {
	Panel *assignments.Panel
}

func NewAssignmentHandler(panel *assignments.Panel) *AssignmentHandler {
	return &AssignmentHandler{Panel: panel}
}

// ListAssignments returns the current assignment entries for an entity.
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	entityKey := mux.Vars(r)["entityKey"]
	entries, err := h.Panel.List(r.Context(), entityKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

// Assign adds users, with roles forwarded only for projects.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	entityKey := mux.Vars(r)["entityKey"]
	var req struct {
		UserIDs []string          `json:"userIds"`
		Roles   map[string]string `json:"roles,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if len(req.UserIDs) == 0 {
		http.Error(w, "userIds is required", http.StatusBadRequest)
		return
	}
	if err := h.Panel.Assign(r.Context(), entityKey, req.UserIDs, req.Roles); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Unassign removes one user with positive verification.
func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.Panel.Unassign(r.Context(), vars["entityKey"], vars["userID"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BulkUnassign removes several users and reports a per-id outcome.
func (h *AssignmentHandler) BulkUnassign(w http.ResponseWriter, r *http.Request) {
	entityKey := mux.Vars(r)["entityKey"]
	var req struct {
		UserIDs []string `json:"userIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	outcomes := h.Panel.BulkUnassign(r.Context(), entityKey, req.UserIDs)

	type outcomeBody struct {
		UserID  string `json:"userId"`
		Success bool   `json:"success"`
		Kind    string `json:"kind,omitempty"`
		Message string `json:"message,omitempty"`
	}
	body := make([]outcomeBody, 0, len(outcomes))
	for _, o := range outcomes {
		item := outcomeBody{UserID: o.UserID, Success: o.Err == nil}
		if o.Err != nil {
			item.Kind = string(models.KindOf(o.Err))
			item.Message = o.Err.Error()
		}
		body = append(body, item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": body})
}

// SetRole updates a project assignment role.
func (h *AssignmentHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.Panel.SetRole(r.Context(), vars["entityKey"], vars["userID"], req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
