package board

import (
	"sync"
	"time"
)

// DefaultDebounce is how long keystrokes are coalesced before the search
// query is applied to the visible-card projection.
const DefaultDebounce = 300 * time.Millisecond

// Filter debounces search input so the filtered view is not recomputed on
// every keystroke when entity counts are large.
type Filter struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	staged  string
	applied string
}

func NewFilter(delay time.Duration) *Filter {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Filter{delay: delay}
}

// Set stages a query; it becomes visible after the debounce window
// elapses without another Set.
func (f *Filter) Set(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = query
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() {
		f.mu.Lock()
		f.applied = f.staged
		f.mu.Unlock()
	})
}

// Flush applies the staged query immediately.
func (f *Filter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.applied = f.staged
}

// Query returns the currently applied query.
func (f *Filter) Query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}
