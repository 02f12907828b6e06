// Package cache provides a revision-keyed cache for derived values.
// An entry is valid only while its revision matches; storing a new
// revision for a key replaces the stale value.
package cache

import "sync"

type entry[V any] struct {
	revision string
	value    V
}

// Keyed caches one derived value per key, tagged with the revision of
// the source it was derived from. A lookup with a different revision
// misses, so stale values can never be served after the source changes.
type Keyed[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

// NewKeyed creates an empty revision-keyed cache.
func NewKeyed[V any]() *Keyed[V] {
	return &Keyed[V]{entries: make(map[string]entry[V])}
}

// Get returns the cached value for key if it was stored under revision.
func (c *Keyed[V]) Get(key, revision string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.revision != revision {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores the value for key under revision, replacing any previous
// value regardless of its revision.
func (c *Keyed[V]) Put(key, revision string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{revision: revision, value: value}
}

// Invalidate removes the entry for key.
func (c *Keyed[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *Keyed[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
