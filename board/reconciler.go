package board

import (
	"context"
	"strings"
	"sync"

	"github.com/guslozua/bitacora-sync/client"
	"github.com/guslozua/bitacora-sync/hierarchy"
	"github.com/guslozua/bitacora-sync/inflight"
	"github.com/guslozua/bitacora-sync/logging"
	"github.com/guslozua/bitacora-sync/models"
	"github.com/guslozua/bitacora-sync/styles"
)

type Lane string

const (
	LanePendiente  Lane = "pendiente"
	LaneEnProgreso Lane = "en-progreso"
	LaneCompletado Lane = "completado"
)

// Lanes in display order.
var LaneOrder = []Lane{LanePendiente, LaneEnProgreso, LaneCompletado}

func laneForStatus(s models.Status) Lane {
	switch s {
	case models.StatusEnProgreso:
		return LaneEnProgreso
	case models.StatusCompletado:
		return LaneCompletado
	}
	return LanePendiente
}

// statusForLane translates a lane back to the backend status string.
func statusForLane(l Lane) (models.Status, bool) {
	switch l {
	case LanePendiente:
		return models.StatusPendiente, true
	case LaneEnProgreso:
		return models.StatusEnProgreso, true
	case LaneCompletado:
		return models.StatusCompletado, true
	}
	return "", false
}

// Card is the board projection of an entity.
type Card struct {
	Key      string          `json:"key"`
	Type     models.EntityType `json:"type"`
	Title    string          `json:"title"`
	Progress int             `json:"progress"`
	Priority models.Priority `json:"priority"`
	Style    styles.Style    `json:"style"`
}

// Reconciler owns lane membership for the board view. Moves are applied
// optimistically, then confirmed against the backend; any failure is
// recovered by a full refetch-and-rebuild, never by an inverse splice.
type Reconciler struct {
	mu       sync.Mutex
	backend  *client.BackendClient
	index    *hierarchy.Index
	entities map[string]models.Entity
	lanes    map[Lane][]string
	tracker  *inflight.Tracker
	filter   *Filter
}

func NewReconciler(backend *client.BackendClient) *Reconciler {
	r := &Reconciler{
		backend:  backend,
		entities: make(map[string]models.Entity),
		lanes:    make(map[Lane][]string),
		tracker:  inflight.NewTracker(),
	}
	r.filter = NewFilter(DefaultDebounce)
	return r
}

// Refresh refetches the three flat lists and rebuilds the index and the
// lanes wholesale. It is the single recovery action for every failed
// mutation and the resync point for optimistic state.
func (r *Reconciler) Refresh(ctx context.Context) error {
	projects, err := r.backend.FetchProjects(ctx)
	if err != nil {
		return err
	}
	tasks, err := r.backend.FetchTasks(ctx)
	if err != nil {
		return err
	}
	subtasks, err := r.backend.FetchSubtasks(ctx)
	if err != nil {
		return err
	}

	ix := hierarchy.Build(projects, tasks, subtasks)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = ix
	r.entities = make(map[string]models.Entity, ix.Len())
	r.lanes = make(map[Lane][]string)
	for _, key := range ix.Flat() {
		e, _ := ix.Entity(key)
		r.entities[key] = e
		lane := laneForStatus(e.Status())
		r.lanes[lane] = append(r.lanes[lane], key)
	}
	r.tracker.Reset()

	logging.Logger.Infof("Event ID: BOARD_REFRESHED, Description: Board rebuilt with %d entities", ix.Len())
	return nil
}

// MoveCard applies a drag between lanes. A same-lane move only reorders
// locally; status is the only backend-visible dimension, so no call is
// issued. A cross-lane move splices immediately, then confirms with one
// PUT; on any failure the optimistic change is discarded by refetching.
func (r *Reconciler) MoveCard(ctx context.Context, cardKey string, fromLane, toLane Lane, targetIndex int) error {
	status, ok := statusForLane(toLane)
	if !ok {
		return models.NewValidationError("unknown lane: %q", toLane)
	}

	if fromLane == toLane {
		r.mu.Lock()
		r.reorderWithin(fromLane, cardKey, targetIndex)
		r.mu.Unlock()
		return nil
	}

	entityType, id, err := models.SplitKey(cardKey)
	if err != nil {
		// Fail closed on a malformed key: never guess an id, resync.
		logging.Logger.Warnf("Event ID: BOARD_MALFORMED_KEY, Description: Rejecting move for malformed card key %q", cardKey)
		if rerr := r.Refresh(ctx); rerr != nil {
			logging.Logger.Errorf("Event ID: BOARD_REFETCH_FAILED, Description: Resync after malformed key failed: %v", rerr)
		}
		return models.NewValidationError("malformed card key: %q", cardKey)
	}

	seq, err := r.tracker.Begin(cardKey)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.splice(fromLane, toLane, cardKey, targetIndex)
	if e, ok := r.entities[cardKey]; ok {
		e.Progress = models.ProgressForStatus(status)
		r.entities[cardKey] = e
	}
	r.mu.Unlock()

	err = r.backend.UpdateStatus(ctx, entityType, id, status)

	if r.tracker.Finish(cardKey, seq) {
		// A newer mutation or a refetch superseded this response.
		logging.Logger.Infof("Event ID: BOARD_STALE_RESPONSE, Description: Discarding stale move response for %s", cardKey)
		return nil
	}

	if err != nil {
		logging.Logger.Warnf("Event ID: BOARD_MOVE_FAILED, Description: Move of %s to lane %s failed: %v", cardKey, toLane, err)
		if rerr := r.Refresh(ctx); rerr != nil {
			logging.Logger.Errorf("Event ID: BOARD_REFETCH_FAILED, Description: Resync after failed move failed: %v", rerr)
		}
		return err
	}
	return nil
}

// reorderWithin moves a card to targetIndex inside one lane.
func (r *Reconciler) reorderWithin(lane Lane, cardKey string, targetIndex int) {
	keys := r.lanes[lane]
	pos := -1
	for i, k := range keys {
		if k == cardKey {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	keys = append(keys[:pos], keys[pos+1:]...)
	r.lanes[lane] = insertAt(keys, cardKey, targetIndex)
}

// splice removes a card from one lane and inserts it into another.
func (r *Reconciler) splice(fromLane, toLane Lane, cardKey string, targetIndex int) {
	keys := r.lanes[fromLane]
	for i, k := range keys {
		if k == cardKey {
			r.lanes[fromLane] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	r.lanes[toLane] = insertAt(r.lanes[toLane], cardKey, targetIndex)
}

func insertAt(keys []string, key string, index int) []string {
	if index < 0 || index > len(keys) {
		index = len(keys)
	}
	keys = append(keys, "")
	copy(keys[index+1:], keys[index:])
	keys[index] = key
	return keys
}

// Lane returns the cards of one lane, style resolved, in lane order.
func (r *Reconciler) Lane(lane Lane) []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cardsLocked(lane, "")
}

// VisibleLane applies the debounced search filter on top of lane order.
func (r *Reconciler) VisibleLane(lane Lane) []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cardsLocked(lane, r.filter.Query())
}

func (r *Reconciler) cardsLocked(lane Lane, query string) []Card {
	keys := r.lanes[lane]
	cards := make([]Card, 0, len(keys))
	for _, key := range keys {
		e, ok := r.entities[key]
		if !ok {
			continue
		}
		if query != "" && !matches(e, query) {
			continue
		}
		cards = append(cards, Card{
			Key:      key,
			Type:     e.Type,
			Title:    e.Title,
			Progress: e.Progress,
			Priority: e.Priority,
			Style:    styles.Resolve(e.Type, e.Progress),
		})
	}
	return cards
}

// LaneCounts returns the unfiltered card count per lane.
func (r *Reconciler) LaneCounts() map[Lane]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Lane]int, len(LaneOrder))
	for _, lane := range LaneOrder {
		counts[lane] = len(r.lanes[lane])
	}
	return counts
}

// SetSearch feeds the debounced filter; the visible projection follows
// roughly DefaultDebounce later.
func (r *Reconciler) SetSearch(query string) {
	r.filter.Set(query)
}

// Filter exposes the filter for flushing in tests and on panel close.
func (r *Reconciler) Filter() *Filter {
	return r.filter
}

func matches(e models.Entity, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Description), q)
}
