package inflight

import (
	"fmt"
	"sync"
)

// ErrMutationPending is returned when a second optimistic mutation is
// attempted for a composite key whose previous mutation has not resolved.
// Mutations to different keys may run concurrently; per key they are
// serialized.
var ErrMutationPending = fmt.Errorf("a mutation for this entity is still pending")

// Tracker hands out per-key monotonically increasing sequence numbers so
// that a late response for an older mutation can be recognized and
// discarded instead of overwriting newer optimistic state.
type Tracker struct {
	mu      sync.Mutex
	next    uint64
	latest  map[string]uint64
	pending map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		latest:  make(map[string]uint64),
		pending: make(map[string]bool),
	}
}

// Begin registers a new mutation for a key and returns its sequence
// number. It fails with ErrMutationPending while an earlier mutation for
// the same key is unresolved. Sequence numbers are drawn from a single
// counter that survives Reset, so a pre-reset response can never collide
// with a post-reset one.
func (t *Tracker) Begin(key string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[key] {
		return 0, ErrMutationPending
	}
	t.next++
	t.latest[key] = t.next
	t.pending[key] = true
	return t.next, nil
}

// Finish resolves a mutation. It reports whether the response is stale:
// a stale response belongs to a superseded sequence (or predates a Reset)
// and must not be applied.
func (t *Tracker) Finish(key string, seq uint64) (stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[key] != seq {
		return true
	}
	delete(t.pending, key)
	return false
}

// Reset forgets all sequence state. A full refetch is the resync point;
// every response still in flight when Reset is called resolves as stale.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = make(map[string]uint64)
	t.pending = make(map[string]bool)
}
