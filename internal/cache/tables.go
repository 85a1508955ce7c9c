package cache

import (
	"sync"

	"karolbroda.com/lyrifloat/internal/timing"
)

// Tables memoizes built timing tables per track key. A published table is
// never modified; Replace swaps in a new reference for forced refreshes.
type Tables struct {
	mu      sync.RWMutex
	entries map[string]*timing.Table
}

func NewTables() *Tables {
	return &Tables{entries: make(map[string]*timing.Table)}
}

func (t *Tables) Get(key string) (*timing.Table, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	table, ok := t.entries[key]
	return table, ok
}

// Store publishes table under key unless one is already there, and returns
// whichever table ends up stored.
func (t *Tables) Store(key string, table *timing.Table) *timing.Table {
	if table == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[key]; ok {
		return existing
	}
	t.entries[key] = table
	return table
}

func (t *Tables) Replace(key string, table *timing.Table) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if table == nil {
		delete(t.entries, key)
		return
	}
	t.entries[key] = table
}

func (t *Tables) Forget(key string) {
	t.Replace(key, nil)
}

func (t *Tables) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
