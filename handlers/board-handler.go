package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/guslozua/bitacora-sync/board"
)

type BoardHandler struct {
	Reconciler *board.Reconciler
}

func NewBoardHandler(reconciler *board.Reconciler) *BoardHandler {
	return &BoardHandler{Reconciler: reconciler}
}

// GetBoard returns the filtered board projection plus unfiltered lane
// counts.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	lanes := make(map[board.Lane][]board.Card, len(board.LaneOrder))
	for _, lane := range board.LaneOrder {
		lanes[lane] = h.Reconciler.VisibleLane(lane)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lanes":  lanes,
		"counts": h.Reconciler.LaneCounts(),
	})
}

// MoveCard applies a drag-and-drop between lanes.
func (h *BoardHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardKey     string     `json:"cardKey"`
		FromLane    board.Lane `json:"fromLane"`
		ToLane      board.Lane `json:"toLane"`
		TargetIndex int        `json:"targetIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.Reconciler.MoveCard(r.Context(), req.CardKey, req.FromLane, req.ToLane, req.TargetIndex); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Refresh forces a full refetch-and-rebuild.
func (h *BoardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Reconciler.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetSearch stages a search query; it is applied after the debounce
// window.
func (h *BoardHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	h.Reconciler.SetSearch(req.Query)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
