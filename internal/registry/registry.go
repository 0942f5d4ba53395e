// Package registry holds the in-memory mapping from filename to access
// grant. It is the single source of truth for whether a stored file is
// servable and with which token. The registry has no on-disk representation;
// its lifecycle is the process lifetime, and it is never rebuilt after a
// restart (files surviving a crash stay ungoverned until manually cleared).
package registry

import (
	"sync"

	"github.com/vidrelay/vidrelay/internal/domain"
)

// Registry is safe for concurrent use by the ingestion path, the delivery
// path, and the reaper. A single RWMutex guards the whole map; per-key
// locking is deliberately not attempted.
type Registry struct {
	mu     sync.RWMutex
	grants map[string]domain.Grant
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{grants: make(map[string]domain.Grant)}
}

// Put inserts or replaces the grant for filename. Any previous grant for the
// same filename is discarded; a token minted for the replaced grant stops
// validating immediately.
func (r *Registry) Put(filename string, g domain.Grant) {
	r.mu.Lock()
	r.grants[filename] = g
	r.mu.Unlock()
}

// Get returns the grant for filename, if present. Pure lookup, no mutation.
func (r *Registry) Get(filename string) (domain.Grant, bool) {
	r.mu.RLock()
	g, ok := r.grants[filename]
	r.mu.RUnlock()
	return g, ok
}

// Remove deletes the entry for filename if present; no-op otherwise.
func (r *Registry) Remove(filename string) {
	r.mu.Lock()
	delete(r.grants, filename)
	r.mu.Unlock()
}

// Snapshot returns a consistent point-in-time copy of all grants. Callers
// (the reaper) may iterate it without holding any lock; it never observes a
// half-written insert.
func (r *Registry) Snapshot() []domain.Grant {
	r.mu.RLock()
	out := make([]domain.Grant, 0, len(r.grants))
	for _, g := range r.grants {
		out = append(out, g)
	}
	r.mu.RUnlock()
	return out
}

// Len reports the number of live grants.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.grants)
	r.mu.RUnlock()
	return n
}
