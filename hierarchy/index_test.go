package hierarchy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guslozua/bitacora-sync/models"
)

func project(id string) models.Entity {
	return models.Entity{Type: models.TypeProject, ID: id, Title: "P" + id}
}

func task(id, projectID string) models.Entity {
	return models.Entity{Type: models.TypeTask, ID: id, ParentID: projectID}
}

func subtask(id, taskID string) models.Entity {
	return models.Entity{Type: models.TypeSubtask, ID: id, ParentID: taskID}
}

func TestBuildGroupsByParent(t *testing.T) {
	ix := Build(
		[]models.Entity{project("1"), project("2")},
		[]models.Entity{task("10", "1"), task("11", "1"), task("20", "2")},
		[]models.Entity{subtask("100", "10")},
	)

	assert.Equal(t, []string{"task-10", "task-11"}, ix.Children("project-1"))
	assert.Equal(t, []string{"task-20"}, ix.Children("project-2"))
	assert.Equal(t, []string{"subtask-100"}, ix.Children("task-10"))
	assert.Empty(t, ix.Children("task-11"))
	assert.Empty(t, ix.Orphans())
}

func TestBuildKeepsOrphansInFlat(t *testing.T) {
	ix := Build(
		[]models.Entity{project("1")},
		[]models.Entity{task("10", "1"), task("99", "missing")},
		[]models.Entity{subtask("500", "gone")},
	)

	assert.ElementsMatch(t, []string{"task-99", "subtask-500"}, ix.Orphans())
	assert.Contains(t, ix.Flat(), "task-99")
	assert.Contains(t, ix.Flat(), "subtask-500")

	// Orphans are unlinked, not re-parented.
	assert.Equal(t, []string{"task-10"}, ix.Children("project-1"))
}

func TestRoundTripNoDuplicatesNoDrops(t *testing.T) {
	var projects, tasks, subtasks []models.Entity
	want := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p := project(fmt.Sprintf("p%d", i))
		projects = append(projects, p)
		want[p.Key()] = true
		for j := 0; j < 4; j++ {
			tk := task(fmt.Sprintf("t%d-%d", i, j), p.ID)
			tasks = append(tasks, tk)
			want[tk.Key()] = true
		}
	}
	// A handful of orphans must survive too.
	for i := 0; i < 5; i++ {
		s := subtask(fmt.Sprintf("s%d", i), "nonexistent")
		subtasks = append(subtasks, s)
		want[s.Key()] = true
	}

	ix := Build(projects, tasks, subtasks)

	require.Equal(t, len(want), ix.Len())
	got := make(map[string]bool)
	for _, key := range ix.Flat() {
		assert.False(t, got[key], "duplicate key %s", key)
		got[key] = true
	}
	assert.Equal(t, want, got)
}

func TestBuildSkipsDuplicateCompositeKeys(t *testing.T) {
	ix := Build(
		[]models.Entity{project("1")},
		[]models.Entity{
			{Type: models.TypeTask, ID: "10", ParentID: "1", Title: "first"},
			{Type: models.TypeTask, ID: "10", ParentID: "1", Title: "second"},
		},
		nil,
	)

	assert.Equal(t, 2, ix.Len())
	e, ok := ix.Entity("task-10")
	require.True(t, ok)
	assert.Equal(t, "first", e.Title)
	assert.Equal(t, []string{"task-10"}, ix.Children("project-1"))
}

func TestLookupUnknownKey(t *testing.T) {
	ix := Build(nil, nil, nil)
	_, ok := ix.Entity("task-1")
	assert.False(t, ok)
	assert.Empty(t, ix.Children("task-1"))
}
