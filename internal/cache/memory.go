package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory implements an L1 in-memory cache with LRU eviction and a fixed
// number of entries.
type Memory[V any] struct {
	capacity int

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type memoryEntry[V any] struct {
	key       string
	value     V
	timestamp time.Time
	hits      int64
}

// NewMemory creates a memory cache holding at most capacity entries.
func NewMemory[V any](capacity int) *Memory[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: int64(capacity)},
	}
}

// Get retrieves a value from the cache.
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = time.Now()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry[V])
	entry.hits++

	c.stats.Hits++
	return entry.value, true
}

// Put stores a value in the cache, evicting the least recently used entry
// when full.
func (c *Memory[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry[V])
		entry.value = value
		entry.timestamp = time.Now()
		return
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry[V]{
		key:       key,
		value:     value,
		timestamp: time.Now(),
	})
	c.items[key] = elem
}

// Delete removes an entry from the cache.
func (c *Memory[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.eviction.Remove(elem)
	delete(c.items, key)
	return true
}

// Clear removes all entries.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// Len returns the number of cached entries.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns cache statistics.
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = int64(c.eviction.Len())
	stats.ItemCount = stats.Size
	stats.updateHitRate()
	return stats
}

// evictOldest removes the least recently used entry. Callers hold the lock.
func (c *Memory[V]) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry[V])
	c.eviction.Remove(elem)
	delete(c.items, entry.key)

	c.stats.Evictions++
	c.stats.LastEvict = time.Now()
}
