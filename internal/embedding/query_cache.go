package embedding

import (
	"sync"

	"github.com/hyperjump/folio/pkg/utils"
)

// queryKey folds whitespace so "river  flow" and " river flow\n" share one
// vector.
func queryKey(text string) string {
	return utils.OneLine(text)
}

// queryCache keeps the most recently used query vectors. Entries form a ring
// around a sentinel, most recent first; the zero capacity cache stores nothing.
type queryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*queryEntry
	ring     queryEntry
}

type queryEntry struct {
	key        string
	vec        []float32
	prev, next *queryEntry
}

func newQueryCache(capacity int) *queryCache {
	c := &queryCache{capacity: capacity, entries: make(map[string]*queryEntry)}
	c.ring.prev, c.ring.next = &c.ring, &c.ring
	return c
}

// lookup returns a copy of the vector stored under key.
func (c *queryCache) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.unlink(e)
	c.pushFront(e)
	return append([]float32(nil), e.vec...), true
}

// store records vec under key, dropping the least recently used entry when full.
func (c *queryCache) store(key string, vec []float32) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	vec = append([]float32(nil), vec...)
	if e, ok := c.entries[key]; ok {
		e.vec = vec
		c.unlink(e)
		c.pushFront(e)
		return
	}
	e := &queryEntry{key: key, vec: vec}
	c.entries[key] = e
	c.pushFront(e)
	if len(c.entries) > c.capacity {
		last := c.ring.prev
		c.unlink(last)
		delete(c.entries, last.key)
	}
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *queryCache) unlink(e *queryEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *queryCache) pushFront(e *queryEntry) {
	e.prev = &c.ring
	e.next = c.ring.next
	c.ring.next.prev = e
	c.ring.next = e
}
