package vector

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store using brute-force search. It serves tests
// and single-process runs without a Qdrant server; contents are lost on exit.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	info   Collection
	ids    []uint64
	points map[uint64]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// CreateCollection adds a collection. It fails if the name is taken.
func (m *MemoryStore) CreateCollection(ctx context.Context, c Collection) error {
	if c.Dimension == 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[c.Name]; ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, c.Name)
	}
	if c.Distance == "" {
		c.Distance = DistanceDot
	}
	m.collections[c.Name] = &memoryCollection{info: c, points: make(map[uint64]Point)}
	return nil
}

// CollectionExists reports whether name exists.
func (m *MemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// ListCollections returns collection names in sorted order.
func (m *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.collections)), nil
}

// DeleteCollection removes a collection. Deleting a missing collection is not an error.
func (m *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// Upsert inserts or replaces points by id.
func (m *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for _, p := range points {
		if uint64(len(p.Vector)) != c.info.Dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(p.Vector), c.info.Dimension)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		if _, exists := c.points[p.ID]; !exists {
			c.ids = append(c.ids, p.ID)
		}
		c.points[p.ID] = Point{ID: p.ID, Vector: vec, Payload: maps.Clone(p.Payload)}
	}
	return nil
}

// Search scores every point in the collection and returns the best limit.
func (m *MemoryStore) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if uint64(len(vector)) != c.info.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), c.info.Dimension)
	}
	if limit == 0 || len(c.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		id    uint64
		score float64
	}
	scores := make([]scored, len(c.ids))
	for i, id := range c.ids {
		scores[i] = scored{id: id, score: c.info.Distance.Score(vector, c.points[id].Vector)}
	}
	higher := c.info.Distance.HigherIsBetter()
	sort.SliceStable(scores, func(i, j int) bool {
		if higher {
			return scores[i].score > scores[j].score
		}
		return scores[i].score < scores[j].score
	})
	if limit > uint64(len(scores)) {
		limit = uint64(len(scores))
	}
	out := make([]ScoredPoint, limit)
	for i := range out {
		p := c.points[scores[i].id]
		payload := make(map[string]PayloadValue, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = PayloadFromAny(v)
		}
		out[i] = ScoredPoint{ID: p.ID, Score: float32(scores[i].score), Payload: payload}
	}
	return out, nil
}

// Size returns the number of points in a collection, or 0 if it does not exist.
func (m *MemoryStore) Size(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[collection]; ok {
		return len(c.ids)
	}
	return 0
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
