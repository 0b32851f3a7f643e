package hierarchy

import (
	"github.com/guslozua/bitacora-sync/models"
)

// Index maps every entity to its children by composite key. It is built
// wholesale from the flat refetched lists and is read-only afterwards;
// a refetch replaces the whole index rather than patching it.
type Index struct {
	entities map[string]models.Entity
	children map[string][]string
	flat     []string
	orphans  []string
}

// Build groups tasks under their project and subtasks under their task in
// a single pass per level. Entities whose parent cannot be resolved stay
// in the flat collection as orphans; they are never dropped. Duplicate
// composite keys keep the first occurrence.
func Build(projects, tasks, subtasks []models.Entity) *Index {
	total := len(projects) + len(tasks) + len(subtasks)
	ix := &Index{
		entities: make(map[string]models.Entity, total),
		children: make(map[string][]string),
		flat:     make([]string, 0, total),
	}

	for _, p := range projects {
		ix.add(p)
	}
	for _, t := range tasks {
		if !ix.add(t) {
			continue
		}
		ix.link(models.CompositeKey(models.TypeProject, t.ParentID), t.Key())
	}
	for _, s := range subtasks {
		if !ix.add(s) {
			continue
		}
		ix.link(models.CompositeKey(models.TypeTask, s.ParentID), s.Key())
	}

	return ix
}

func (ix *Index) add(e models.Entity) bool {
	key := e.Key()
	if _, exists := ix.entities[key]; exists {
		return false
	}
	ix.entities[key] = e
	ix.flat = append(ix.flat, key)
	return true
}

func (ix *Index) link(parentKey, childKey string) {
	if _, ok := ix.entities[parentKey]; !ok {
		ix.orphans = append(ix.orphans, childKey)
		return
	}
	ix.children[parentKey] = append(ix.children[parentKey], childKey)
}

// Children returns the child composite keys of an entity, in input order.
func (ix *Index) Children(key string) []string {
	return ix.children[key]
}

// Entity looks up an entity by composite key.
func (ix *Index) Entity(key string) (models.Entity, bool) {
	e, ok := ix.entities[key]
	return e, ok
}

// Flat returns every composite key in the index: projects first, then
// tasks, then subtasks, each level in input order. Orphans are included.
func (ix *Index) Flat() []string {
	return ix.flat
}

// Orphans returns the composite keys whose parent was not resolvable.
func (ix *Index) Orphans() []string {
	return ix.orphans
}

func (ix *Index) Len() int {
	return len(ix.flat)
}
