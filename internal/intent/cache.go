package intent

import (
	"strings"
	"sync"
	"time"
)

// =============================================================================
// CLASSIFICATION CACHE
// =============================================================================

// Cache is a bounded, time-boxed cache of classification results keyed by
// normalized utterance. Eviction on overflow is by insertion order, not
// access order: reads never promote an entry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]cacheEntry
	order    []string

	now func() time.Time
}

type cacheEntry struct {
	result   ParsedIntent
	storedAt time.Time
}

// NewCache creates a cache holding at most capacity entries for at most ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func cacheKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Get returns the cached result for text. An entry past its TTL is treated
// as absent and evicted on the spot.
func (c *Cache) Get(text string) (ParsedIntent, bool) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return ParsedIntent{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.remove(key)
		return ParsedIntent{}, false
	}
	return entry.result, true
}

// Set stores a result. Overwriting an existing key refreshes its timestamp
// but keeps its eviction position. On overflow the oldest-inserted entry is
// evicted.
func (c *Cache) Set(text string, result ParsedIntent) {
	key := cacheKey(text)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.capacity && len(c.order) > 0 {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{result: result, storedAt: c.now()}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = c.order[:0]
}

// Len returns the current entry count, including not-yet-evicted expired
// entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove deletes key from both the map and the insertion-order list.
// Must be called with c.mu held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
