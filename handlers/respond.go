package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guslozua/bitacora-sync/inflight"
	"github.com/guslozua/bitacora-sync/models"
)

type errorBody struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the reconciler error taxonomy onto HTTP statuses. The
// backend message travels verbatim for logical failures.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, inflight.ErrMutationPending) {
		writeJSON(w, http.StatusConflict, errorBody{Kind: "pending", Message: err.Error()})
		return
	}
	status := http.StatusBadGateway
	switch models.KindOf(err) {
	case models.ErrValidation:
		status = http.StatusBadRequest
	case models.ErrDesync:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Kind: string(models.KindOf(err)), Message: err.Error()})
}
