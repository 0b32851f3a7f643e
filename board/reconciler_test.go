package board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guslozua/bitacora-sync/client"
	"github.com/guslozua/bitacora-sync/models"
	"github.com/guslozua/bitacora-sync/styles"
)

// fakeBackend is a spy double for the operations backend. It serves the
// flat lists and records every mutating request.
type fakeBackend struct {
	mu       sync.Mutex
	projects []map[string]interface{}
	tasks    []map[string]interface{}
	subtasks []map[string]interface{}

	puts      []string
	putBodies []map[string]string
	failPuts  bool
	logicalNo bool

	server *httptest.Server
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/projects":
		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.projects})
	case r.Method == http.MethodGet && r.URL.Path == "/tasks":
		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.tasks})
	case r.Method == http.MethodGet && r.URL.Path == "/subtasks":
		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.subtasks})
	case r.Method == http.MethodPut:
		f.puts = append(f.puts, r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.putBodies = append(f.putBodies, body)
		if f.failPuts {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}
		if f.logicalNo {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "estado invalido"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (f *fakeBackend) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func wireTask(id, projectID, estado string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"titulo":      "Tarea " + id,
		"estado":      estado,
		"id_proyecto": projectID,
	}
}

func newTestReconciler(t *testing.T) (*Reconciler, *fakeBackend) {
	t.Helper()
	f := newFakeBackend()
	t.Cleanup(f.server.Close)

	f.projects = []map[string]interface{}{{"id": "1", "titulo": "Proyecto 1", "estado": "pendiente"}}
	f.tasks = []map[string]interface{}{
		wireTask("42", "1", "pendiente"),
		wireTask("43", "1", "pendiente"),
		wireTask("44", "1", "en progreso"),
	}

	r := NewReconciler(client.NewBackendClient(f.server.URL, "", f.server.Client()))
	require.NoError(t, r.Refresh(context.Background()))
	return r, f
}

func laneKeys(cards []Card) []string {
	keys := make([]string, 0, len(cards))
	for _, c := range cards {
		keys = append(keys, c.Key)
	}
	return keys
}

func TestRefreshBuildsLanesFromStatus(t *testing.T) {
	r, _ := newTestReconciler(t)

	assert.Equal(t, []string{"project-1", "task-42", "task-43"}, laneKeys(r.Lane(LanePendiente)))
	assert.Equal(t, []string{"task-44"}, laneKeys(r.Lane(LaneEnProgreso)))
	assert.Empty(t, r.Lane(LaneCompletado))

	counts := r.LaneCounts()
	assert.Equal(t, 3, counts[LanePendiente])
	assert.Equal(t, 1, counts[LaneEnProgreso])
	assert.Equal(t, 0, counts[LaneCompletado])
}

func TestSameLaneMoveIssuesNoBackendCall(t *testing.T) {
	r, f := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "task-43", LanePendiente, LanePendiente, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, f.putCount())
	assert.Equal(t, []string{"task-43", "project-1", "task-42"}, laneKeys(r.Lane(LanePendiente)))
}

func TestCrossLaneMoveIssuesExactlyOnePut(t *testing.T) {
	r, f := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "task-42", LanePendiente, LaneCompletado, 0)
	require.NoError(t, err)

	require.Equal(t, 1, f.putCount())
	assert.Equal(t, "/tasks/42", f.puts[0])
	assert.Equal(t, map[string]string{"estado": "completado"}, f.putBodies[0])

	assert.Equal(t, []string{"task-42"}, laneKeys(r.Lane(LaneCompletado)))
	assert.NotContains(t, laneKeys(r.Lane(LanePendiente)), "task-42")

	// The optimistic card reflects the new bucket and palette.
	card := r.Lane(LaneCompletado)[0]
	assert.Equal(t, 100, card.Progress)
	assert.Equal(t, styles.Resolve(models.TypeTask, 100), card.Style)
}

func TestFailedMoveIsDiscardedByRefetch(t *testing.T) {
	r, f := newTestReconciler(t)
	f.failPuts = true

	err := r.MoveCard(context.Background(), "task-42", LanePendiente, LaneCompletado, 0)
	require.Error(t, err)
	assert.Equal(t, models.ErrTransport, models.KindOf(err))

	// The refetch rebuilt the board from server truth.
	assert.Contains(t, laneKeys(r.Lane(LanePendiente)), "task-42")
	assert.Empty(t, r.Lane(LaneCompletado))
}

func TestLogicalFailureKeepsBackendMessage(t *testing.T) {
	r, f := newTestReconciler(t)
	f.logicalNo = true

	err := r.MoveCard(context.Background(), "task-42", LanePendiente, LaneCompletado, 0)
	require.Error(t, err)
	assert.Equal(t, models.ErrLogical, models.KindOf(err))
	assert.Contains(t, err.Error(), "estado invalido")

	// Reconciled like a transport failure: state came back from refetch.
	assert.Contains(t, laneKeys(r.Lane(LanePendiente)), "task-42")
}

func TestMalformedKeyFailsClosed(t *testing.T) {
	r, f := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "project-", LanePendiente, LaneCompletado, 0)
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))

	// No id was guessed out of the malformed key.
	assert.Equal(t, 0, f.putCount())
}

func TestUnknownLaneIsRejected(t *testing.T) {
	r, f := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "task-42", LanePendiente, Lane("archivado"), 0)
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))
	assert.Equal(t, 0, f.putCount())
}

func TestSecondMoveOnSameCardWhilePendingIsSerialized(t *testing.T) {
	r, _ := newTestReconciler(t)

	// Simulate an unresolved mutation for the card.
	_, err := r.tracker.Begin("task-42")
	require.NoError(t, err)

	err = r.MoveCard(context.Background(), "task-42", LanePendiente, LaneCompletado, 0)
	assert.Error(t, err)

	// A different card is free to move.
	err = r.MoveCard(context.Background(), "task-43", LanePendiente, LaneCompletado, 0)
	assert.NoError(t, err)
}

func TestSearchFilterAppliesAfterFlush(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.SetSearch("Tarea 42")
	// Before the debounce window elapses nothing is filtered.
	assert.Len(t, r.VisibleLane(LanePendiente), 3)

	r.Filter().Flush()
	visible := r.VisibleLane(LanePendiente)
	require.Len(t, visible, 1)
	assert.Equal(t, "task-42", visible[0].Key)

	// Unfiltered counts are untouched by the search.
	assert.Equal(t, 3, r.LaneCounts()[LanePendiente])
}

func TestVisibleLaneMatchIsCaseInsensitive(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.SetSearch("tarea 43")
	r.Filter().Flush()

	visible := r.VisibleLane(LanePendiente)
	require.Len(t, visible, 1)
	assert.Equal(t, "task-43", visible[0].Key)
}

func TestMoveTargetIndexIsClamped(t *testing.T) {
	r, _ := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "task-42", LanePendiente, LaneCompletado, 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"task-42"}, laneKeys(r.Lane(LaneCompletado)))
}

func TestMoveProjectCardTranslatesToProjectsEndpoint(t *testing.T) {
	r, f := newTestReconciler(t)

	err := r.MoveCard(context.Background(), "project-1", LanePendiente, LaneEnProgreso, 0)
	require.NoError(t, err)

	require.Equal(t, 1, f.putCount())
	assert.Equal(t, "/projects/1", f.puts[0])
	assert.Equal(t, map[string]string{"estado": "en progreso"}, f.putBodies[0])
}

func TestRefreshIsWholesaleRebuild(t *testing.T) {
	r, f := newTestReconciler(t)

	f.mu.Lock()
	f.tasks = []map[string]interface{}{wireTask("42", "1", "completado")}
	f.mu.Unlock()

	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, []string{"task-42"}, laneKeys(r.Lane(LaneCompletado)))
	assert.Equal(t, []string{"project-1"}, laneKeys(r.Lane(LanePendiente)))
	assert.Empty(t, r.Lane(LaneEnProgreso))
}

func TestFilterDebounceWindow(t *testing.T) {
	f := NewFilter(DefaultDebounce)
	f.Set("abc")
	assert.Equal(t, "", f.Query())
	f.Set("abcd")
	f.Flush()
	assert.Equal(t, "abcd", f.Query())
}

func TestFilterLastWriteWins(t *testing.T) {
	f := NewFilter(DefaultDebounce)
	for i := 0; i < 10; i++ {
		f.Set(fmt.Sprintf("query-%d", i))
	}
	f.Flush()
	assert.Equal(t, "query-9", f.Query())
}
