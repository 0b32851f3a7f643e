package models

import (
	"fmt"
	"strings"
	"time"
)

type EntityType string

const (
	TypeProject EntityType = "project"
	TypeTask    EntityType = "task"
	TypeSubtask EntityType = "subtask"
)

type Status string

const (
	StatusPendiente  Status = "pendiente"
	StatusEnProgreso Status = "en progreso"
	StatusCompletado Status = "completado"
)

type Priority string

const (
	PriorityBaja  Priority = "baja"
	PriorityMedia Priority = "media"
	PriorityAlta  Priority = "alta"
)

// Entity is the shared record for projects, tasks and subtasks.
// Progress is the canonical representation; the status bucket is always
// derived from it, never stored separately.
type Entity struct {
	Type        EntityType `json:"type"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Progress    int        `json:"progress"`
	ParentID    string     `json:"parentId,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Priority    Priority   `json:"priority"`
}

// Key returns the composite key used in every cross-type collection.
func (e Entity) Key() string {
	return CompositeKey(e.Type, e.ID)
}

// Status derives the three-bucket status from the canonical progress.
func (e Entity) Status() Status {
	return BucketForProgress(e.Progress)
}

func (e Entity) Completed() bool {
	return e.Progress >= 100
}

// CompositeKey builds the "type-id" identifier, e.g. "task-42".
func CompositeKey(t EntityType, id string) string {
	return string(t) + "-" + id
}

// SplitKey strips the known type prefix from a composite key. It fails
// closed: an unknown prefix or an empty/blank remainder is an error, the
// caller must not guess an id out of a malformed key.
func SplitKey(key string) (EntityType, string, error) {
	for _, t := range []EntityType{TypeProject, TypeTask, TypeSubtask} {
		prefix := string(t) + "-"
		if strings.HasPrefix(key, prefix) {
			id := strings.TrimPrefix(key, prefix)
			if id == "" || strings.TrimSpace(id) != id {
				return "", "", fmt.Errorf("malformed composite key: %q", key)
			}
			return t, id, nil
		}
	}
	return "", "", fmt.Errorf("malformed composite key: %q", key)
}

// NormalizeStatus maps a raw backend status string, synonyms included,
// into one of the three buckets. The bool reports whether the raw value
// was recognized.
func NormalizeStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pendiente":
		return StatusPendiente, true
	case "en progreso", "en-progreso", "en_progreso":
		return StatusEnProgreso, true
	case "completado", "completada", "finalizado":
		return StatusCompletado, true
	}
	return StatusPendiente, false
}

// ProgressForStatus is the fixed status -> progress mapping used when the
// backend supplies no explicit numeric progress.
func ProgressForStatus(s Status) int {
	switch s {
	case StatusEnProgreso:
		return 50
	case StatusCompletado:
		return 100
	}
	return 0
}

// BucketForProgress is the inverse direction: 100 is completed, anything
// strictly between 0 and 100 is in progress, the rest is pending.
func BucketForProgress(progress int) Status {
	switch {
	case progress >= 100:
		return StatusCompletado
	case progress > 0:
		return StatusEnProgreso
	}
	return StatusPendiente
}

// ClampProgress bounds a progress value into [0, 100].
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// NormalizePriority defaults unknown or empty values to media.
func NormalizePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "baja":
		return PriorityBaja
	case "alta":
		return PriorityAlta
	}
	return PriorityMedia
}
