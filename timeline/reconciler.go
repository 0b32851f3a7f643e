package timeline

import (
	"context"
	"sync"
	"time"

	"github.com/guslozua/bitacora-sync/client"
	"github.com/guslozua/bitacora-sync/hierarchy"
	"github.com/guslozua/bitacora-sync/inflight"
	"github.com/guslozua/bitacora-sync/logging"
	"github.com/guslozua/bitacora-sync/models"
	"github.com/guslozua/bitacora-sync/styles"
	"github.com/guslozua/bitacora-sync/validation"
)

// Row is the timeline projection of an entity. Depth is 0 for projects,
// 1 for tasks, 2 for subtasks. Stale marks an entity whose last progress
// edit failed; the value shown stands until the next refetch.
type Row struct {
	Key       string            `json:"key"`
	Type      models.EntityType `json:"type"`
	Title     string            `json:"title"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Progress  int               `json:"progress"`
	Style     styles.Style      `json:"style"`
	Depth     int               `json:"depth"`
	ParentKey string            `json:"parentKey,omitempty"`
	Expanded  bool              `json:"expanded"`
	Stale     bool              `json:"stale"`
}

// Draft is the user input for creating a task or subtask.
type Draft struct {
	Title       string
	Description string
	Priority    string
	Start       time.Time
	End         time.Time
}

// Reconciler owns progress and date editing for the timeline view with
// the same optimistic-then-confirm discipline as the board. A failed
// progress edit is not rolled back; the entity is flagged stale and the
// next refetch is the source of truth.
type Reconciler struct {
	mu       sync.Mutex
	backend  *client.BackendClient
	index    *hierarchy.Index
	entities map[string]models.Entity
	expanded map[string]bool
	stale    map[string]bool
	tracker  *inflight.Tracker
}

func NewReconciler(backend *client.BackendClient) *Reconciler {
	return &Reconciler{
		backend:  backend,
		entities: make(map[string]models.Entity),
		expanded: make(map[string]bool),
		stale:    make(map[string]bool),
		tracker:  inflight.NewTracker(),
	}
}

// Refresh refetches the flat lists and rebuilds the rows wholesale.
// Expansion state is preserved by composite key so a refetch never
// re-collapses an operator's expanded view; keys that disappeared are
// forgotten. Stale flags clear: the refetched values are the truth.
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
	kept := make(map[string]bool, len(r.expanded))
	for _, key := range ix.Flat() {
		e, _ := ix.Entity(key)
		r.entities[key] = e
		if collapsed, ok := r.expanded[key]; ok {
			kept[key] = collapsed
		}
	}
	r.expanded = kept
	r.stale = make(map[string]bool)
	r.tracker.Reset()

	logging.Logger.Infof("Event ID: TIMELINE_REFRESHED, Description: Timeline rebuilt with %d entities", ix.Len())
	return nil
}

// SetProgress applies a progress edit optimistically, re-resolves the
// style synchronously through the row projection, then confirms with the
// backend. On failure the optimistic value stands and the entity is
// flagged stale until the next refetch.
func (r *Reconciler) SetProgress(ctx context.Context, key string, progress int) error {
	entityType, id, err := models.SplitKey(key)
	if err != nil {
		return models.NewValidationError("malformed entity key: %q", key)
	}

	progress = models.ClampProgress(progress)

	seq, err := r.tracker.Begin(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.entities[key]
	if !ok {
		r.mu.Unlock()
		r.tracker.Finish(key, seq)
		return models.NewValidationError("unknown entity: %q", key)
	}
	e.Progress = progress
	r.entities[key] = e
	r.mu.Unlock()

	err = r.backend.UpdateStatus(ctx, entityType, id, models.BucketForProgress(progress))

	if r.tracker.Finish(key, seq) {
		logging.Logger.Infof("Event ID: TIMELINE_STALE_RESPONSE, Description: Discarding stale progress response for %s", key)
		return nil
	}

	if err != nil {
		r.mu.Lock()
		r.stale[key] = true
		r.mu.Unlock()
		logging.Logger.Warnf("Event ID: TIMELINE_PROGRESS_FAILED, Description: Progress edit for %s kept locally, awaiting refetch: %v", key, err)
		return err
	}
	return nil
}

// MarkComplete is the shortcut for progress=100.
func (r *Reconciler) MarkComplete(ctx context.Context, key string) error {
	return r.SetProgress(ctx, key, 100)
}

// CreateTask validates the draft dates against the project interval and
// only then posts. A rejection blocks the network call entirely. The new
// entity enters the model on the refetch that follows a successful post.
func (r *Reconciler) CreateTask(ctx context.Context, projectKey string, draft Draft) (string, error) {
	entityType, projectID, err := models.SplitKey(projectKey)
	if err != nil || entityType != models.TypeProject {
		return "", models.NewValidationError("not a project key: %q", projectKey)
	}

	r.mu.Lock()
	project, ok := r.entities[projectKey]
	r.mu.Unlock()
	if !ok {
		return "", models.NewValidationError("unknown project: %q", projectKey)
	}

	if res := validation.Validate(draft.Start, draft.End, project.StartDate, project.EndDate); !res.Ok() {
		return "", res.Err()
	}

	id, err := r.backend.CreateTask(ctx, client.CreateTaskRequest{
		Titulo:           draft.Title,
		Descripcion:      draft.Description,
		Estado:           string(models.StatusPendiente),
		Prioridad:        string(models.NormalizePriority(draft.Priority)),
		FechaInicio:      client.FormatDate(draft.Start),
		FechaVencimiento: client.FormatDate(draft.End),
		IDProyecto:       projectID,
	})
	if err != nil {
		return "", err
	}

	if rerr := r.Refresh(ctx); rerr != nil {
		logging.Logger.Warnf("Event ID: TIMELINE_REFETCH_FAILED, Description: Refetch after task create failed: %v", rerr)
	}
	return id, nil
}

// CreateSubtask is the same two-step gate against the parent task's
// interval.
func (r *Reconciler) CreateSubtask(ctx context.Context, taskKey string, draft Draft) (string, error) {
	entityType, taskID, err := models.SplitKey(taskKey)
	if err != nil || entityType != models.TypeTask {
		return "", models.NewValidationError("not a task key: %q", taskKey)
	}

	r.mu.Lock()
	task, ok := r.entities[taskKey]
	r.mu.Unlock()
	if !ok {
		return "", models.NewValidationError("unknown task: %q", taskKey)
	}

	if res := validation.Validate(draft.Start, draft.End, task.StartDate, task.EndDate); !res.Ok() {
		return "", res.Err()
	}

	id, err := r.backend.CreateSubtask(ctx, taskID, client.CreateTaskRequest{
		Titulo:           draft.Title,
		Descripcion:      draft.Description,
		Estado:           string(models.StatusPendiente),
		Prioridad:        string(models.NormalizePriority(draft.Priority)),
		FechaInicio:      client.FormatDate(draft.Start),
		FechaVencimiento: client.FormatDate(draft.End),
	})
	if err != nil {
		return "", err
	}

	if rerr := r.Refresh(ctx); rerr != nil {
		logging.Logger.Warnf("Event ID: TIMELINE_REFETCH_FAILED, Description: Refetch after subtask create failed: %v", rerr)
	}
	return id, nil
}

// Delete optimistically hides the subtree and asks the backend to delete;
// the cascade itself is server-side. On failure the view resyncs.
func (r *Reconciler) Delete(ctx context.Context, key string) error {
	entityType, id, err := models.SplitKey(key)
	if err != nil {
		return models.NewValidationError("malformed entity key: %q", key)
	}

	r.mu.Lock()
	r.hideSubtreeLocked(key)
	r.mu.Unlock()

	if err := r.backend.Delete(ctx, entityType, id); err != nil {
		logging.Logger.Warnf("Event ID: TIMELINE_DELETE_FAILED, Description: Delete of %s failed: %v", key, err)
		if rerr := r.Refresh(ctx); rerr != nil {
			logging.Logger.Errorf("Event ID: TIMELINE_REFETCH_FAILED, Description: Resync after failed delete failed: %v", rerr)
		}
		return err
	}
	return nil
}

func (r *Reconciler) hideSubtreeLocked(key string) {
	if r.index != nil {
		for _, child := range r.index.Children(key) {
			r.hideSubtreeLocked(child)
		}
	}
	delete(r.entities, key)
}

// SetExpanded toggles the hideChildren display state for a key. This is
// client-session state only; it never reaches the backend.
func (r *Reconciler) SetExpanded(key string, expanded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if expanded {
		delete(r.expanded, key)
		return
	}
	r.expanded[key] = true
}

// Expanded reports the display state for a key; the default is expanded.
func (r *Reconciler) Expanded(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.expanded[key]
}

// Rows walks projects, then their tasks, then subtasks, skipping the
// children of collapsed rows. Orphans are appended at the end so nothing
// in the flat collection is dropped from the view.
func (r *Reconciler) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return nil
	}

	rows := make([]Row, 0, len(r.entities))
	seen := make(map[string]bool, len(r.entities))

	var walk func(key, parentKey string, depth int)
	walk = func(key, parentKey string, depth int) {
		e, ok := r.entities[key]
		if !ok {
			return
		}
		seen[key] = true
		expanded := !r.expanded[key]
		rows = append(rows, r.rowLocked(e, parentKey, depth, expanded))
		if !expanded {
			for _, child := range r.index.Children(key) {
				r.markSeenLocked(child, seen)
			}
			return
		}
		for _, child := range r.index.Children(key) {
			walk(child, key, depth+1)
		}
	}

	for _, key := range r.index.Flat() {
		e, ok := r.entities[key]
		if !ok || e.Type != models.TypeProject {
			continue
		}
		walk(key, "", 0)
	}

	// Orphans and anything else not reachable from a project.
	for _, key := range r.index.Flat() {
		if seen[key] {
			continue
		}
		e, ok := r.entities[key]
		if !ok {
			continue
		}
		seen[key] = true
		rows = append(rows, r.rowLocked(e, "", depthForType(e.Type), !r.expanded[key]))
	}

	return rows
}

func (r *Reconciler) markSeenLocked(key string, seen map[string]bool) {
	seen[key] = true
	for _, child := range r.index.Children(key) {
		r.markSeenLocked(child, seen)
	}
}

func (r *Reconciler) rowLocked(e models.Entity, parentKey string, depth int, expanded bool) Row {
	return Row{
		Key:       e.Key(),
		Type:      e.Type,
		Title:     e.Title,
		Start:     e.StartDate,
		End:       e.EndDate,
		Progress:  e.Progress,
		Style:     styles.Resolve(e.Type, e.Progress),
		Depth:     depth,
		ParentKey: parentKey,
		Expanded:  expanded,
		Stale:     r.stale[e.Key()],
	}
}

func depthForType(t models.EntityType) int {
	switch t {
	case models.TypeTask:
		return 1
	case models.TypeSubtask:
		return 2
	}
	return 0
}

// Stale reports whether an entity carries an unconfirmed progress value.
func (r *Reconciler) Stale(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[key]
}

// StaleKeys lists every entity inside the accepted staleness window.
func (r *Reconciler) StaleKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.stale))
	for key := range r.stale {
		keys = append(keys, key)
	}
	return keys
}
