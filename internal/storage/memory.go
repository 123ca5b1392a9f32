package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/folio/internal/models"
)

// MemoryRegistry is a Registry held in process memory. When maxEntries is set,
// the oldest entries are evicted first.
type MemoryRegistry struct {
	mu         sync.RWMutex
	entries    map[string]*models.Upload
	order      []string
	maxEntries int
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry(maxEntries int) *MemoryRegistry {
	return &MemoryRegistry{
		entries:    make(map[string]*models.Upload),
		maxEntries: maxEntries,
	}
}

// Put inserts or replaces an entry.
func (r *MemoryRegistry) Put(ctx context.Context, u *models.Upload) error {
	if u.ID == "" {
		return fmt.Errorf("upload id cannot be empty")
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	cp := *u

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.entries[u.ID] = &cp
	for r.maxEntries > 0 && len(r.order) > r.maxEntries {
		delete(r.entries, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// Get returns a copy of the entry for id.
func (r *MemoryRegistry) Get(ctx context.Context, id string) (*models.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	cp := *u
	return &cp, nil
}

// Complete records the outcome of an ingestion.
func (r *MemoryRegistry) Complete(ctx context.Context, id string, chunks int, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	u.Status, u.Error = outcome(err)
	u.Chunks = chunks
	u.UpdatedAt = time.Now()
	return nil
}

// List returns entries newest first.
func (r *MemoryRegistry) List(ctx context.Context, offset, limit int) ([]*models.Upload, error) {
	offset = max(offset, 0)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Upload
	for i := len(r.order) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		cp := *r.entries[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// Delete removes an entry. Deleting an unknown id is not an error.
func (r *MemoryRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return nil
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of entries.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close is a no-op.
func (r *MemoryRegistry) Close() error { return nil }
