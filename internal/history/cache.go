// Package history manages browser URL state: snapshots of the history
// root on navigation, a bounded snapshot cache, and restoration on
// back/forward traversal.
package history

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCapacity is the default snapshot cache size.
const DefaultCapacity = 10

// Entry is one immutable history snapshot. Never mutated after
// creation; replaced wholesale on re-capture of the same URL.
type Entry struct {
	URL     string    `msgpack:"url"`
	Content string    `msgpack:"content"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// encode serializes an entry for cache storage.
func encode(e Entry) ([]byte, error) {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode history entry: %w", err)
	}
	return raw, nil
}

// decode deserializes a cached entry.
func decode(raw []byte) (Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode history entry: %w", err)
	}
	return e, nil
}

// Cache is a bounded ordered snapshot store keyed by URL. Inserting
// beyond capacity evicts the oldest entry. Not safe for concurrent
// use; driven solely by the engine loop.
type Cache struct {
	capacity int
	order    []string // insertion order, oldest first
	entries  map[string][]byte
}

// NewCache creates a cache with the given capacity; zero or negative
// means DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string][]byte),
	}
}

// Put stores a snapshot. Re-capturing a cached URL replaces the entry
// and refreshes its age.
func (c *Cache) Put(e Entry) error {
	raw, err := encode(e)
	if err != nil {
		return err
	}
	if _, exists := c.entries[e.URL]; exists {
		c.removeFromOrder(e.URL)
	}
	c.entries[e.URL] = raw
	c.order = append(c.order, e.URL)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return nil
}

// Get retrieves a snapshot by URL.
func (c *Cache) Get(url string) (Entry, bool) {
	raw, ok := c.entries[url]
	if !ok {
		return Entry{}, false
	}
	e, err := decode(raw)
	if err != nil {
		// a corrupt entry behaves as a miss; the engine refetches
		delete(c.entries, url)
		c.removeFromOrder(url)
		return Entry{}, false
	}
	return e, true
}

// Delete drops a snapshot.
func (c *Cache) Delete(url string) {
	if _, ok := c.entries[url]; ok {
		delete(c.entries, url)
		c.removeFromOrder(url)
	}
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int { return len(c.entries) }

// URLs returns the cached URLs, oldest first.
func (c *Cache) URLs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Cache) removeFromOrder(url string) {
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
