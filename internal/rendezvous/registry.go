// Package rendezvous provides an in-process registry that lets request
// handlers wait, with a deadline, for results delivered asynchronously by
// webhook handlers. Entries are keyed by task ID and live only as long as
// the process; persistence is the job store's concern.
package rendezvous

import (
	"context"
	"sync"

	"oaigate/internal/models"
)

type entry struct {
	done   chan struct{} // closed exactly once, on publish
	result *models.ImageTaskResult
}

// Registry maps task IDs to pending results.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register creates a slot for id so a later Publish has somewhere to land.
// Registering an existing id is a no-op; the original slot (and any result
// already published into it) is preserved.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return
	}
	r.entries[id] = &entry{done: make(chan struct{})}
}

// Publish stores the result for id and wakes all current and future waiters.
// The result is written before the wakeup so no waiter can observe the
// signal without the payload. Publishing to an unknown id or publishing
// twice is a no-op; the first result wins.
func (r *Registry) Publish(id string, result models.ImageTaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	select {
	case <-e.done:
		return // already published
	default:
	}
	e.result = &result
	close(e.done)
}

// Wait blocks until a result for id is published, the context expires, or
// the id turns out to be unknown. If the result is already present it
// returns immediately. The second return is false when no result was
// obtained.
func (r *Registry) Wait(ctx context.Context, id string) (*models.ImageTaskResult, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return e.result, e.result != nil
}

// Snapshot returns the published result for id without blocking.
func (r *Registry) Snapshot(id string) (*models.ImageTaskResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.result == nil {
		return nil, false
	}
	return e.result, true
}

// Drop removes the entry for id. Pending waiters keep their reference to
// the old slot and still wake up if it was already published; new waiters
// see an unknown id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len reports the number of live entries. Used for observability.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
