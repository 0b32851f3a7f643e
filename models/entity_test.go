package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatusSynonyms(t *testing.T) {
	cases := map[string]Status{
		"pendiente":   StatusPendiente,
		"en progreso": StatusEnProgreso,
		"en-progreso": StatusEnProgreso,
		"completado":  StatusCompletado,
		"completada":  StatusCompletado,
		"finalizado":  StatusCompletado,
		"COMPLETADO":  StatusCompletado,
		" Pendiente ": StatusPendiente,
	}
	for raw, want := range cases {
		got, ok := NormalizeStatus(raw)
		assert.True(t, ok, "expected %q to be recognized", raw)
		assert.Equal(t, want, got, "raw=%q", raw)
	}

	got, ok := NormalizeStatus("cancelado")
	assert.False(t, ok)
	assert.Equal(t, StatusPendiente, got)
}

func TestStatusProgressRoundTrip(t *testing.T) {
	// Both directions of the duality must agree after a round-trip.
	for _, s := range []Status{StatusPendiente, StatusEnProgreso, StatusCompletado} {
		assert.Equal(t, s, BucketForProgress(ProgressForStatus(s)))
	}
}

func TestBucketForProgressBoundaries(t *testing.T) {
	assert.Equal(t, StatusPendiente, BucketForProgress(0))
	assert.Equal(t, StatusEnProgreso, BucketForProgress(1))
	assert.Equal(t, StatusEnProgreso, BucketForProgress(99))
	assert.Equal(t, StatusCompletado, BucketForProgress(100))
}

func TestSplitKey(t *testing.T) {
	entityType, id, err := SplitKey("task-42")
	require.NoError(t, err)
	assert.Equal(t, TypeTask, entityType)
	assert.Equal(t, "42", id)

	entityType, id, err = SplitKey("subtask-9a")
	require.NoError(t, err)
	assert.Equal(t, TypeSubtask, entityType)
	assert.Equal(t, "9a", id)
}

func TestSplitKeyFailsClosed(t *testing.T) {
	for _, key := range []string{"", "task-", "42", "card-42", "task- 42", "Task-42"} {
		_, _, err := SplitKey(key)
		assert.Error(t, err, "key=%q", key)
	}
}

func TestCompositeKeyRoundTrip(t *testing.T) {
	e := Entity{Type: TypeProject, ID: "7"}
	entityType, id, err := SplitKey(e.Key())
	require.NoError(t, err)
	assert.Equal(t, e.Type, entityType)
	assert.Equal(t, e.ID, id)
}

func TestNormalizePriorityDefaultsToMedia(t *testing.T) {
	assert.Equal(t, PriorityBaja, NormalizePriority("baja"))
	assert.Equal(t, PriorityAlta, NormalizePriority("Alta"))
	assert.Equal(t, PriorityMedia, NormalizePriority(""))
	assert.Equal(t, PriorityMedia, NormalizePriority("urgente"))
}
