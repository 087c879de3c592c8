// Package cache provides a thread-safe, TTL-bounded LRU cache. Instances
// are explicitly owned by their callers and passed into collaborators;
// there is no process-wide shared cache in this codebase.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// TTLCache is an LRU cache whose entries also expire after a fixed TTL.
// A zero TTL disables expiry and leaves pure LRU semantics. When the cache
// is at capacity the least recently used entry is evicted. All methods are
// safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List
	mu       sync.Mutex
	onEvict  func(key K, value V)

	// now is swappable in tests.
	now func() time.Time
}

// New creates a TTL-bounded LRU cache. Capacity must be positive.
func New[K comparable, V any](capacity int, ttl time.Duration) *TTLCache[K, V] {
	if capacity <= 0 {
		panic("cache capacity must be positive")
	}
	return &TTLCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetEvictCallback registers a cleanup hook invoked for every entry removed
// by capacity eviction, expiry, Remove or Clear.
func (c *TTLCache[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key, refreshing its recency. Expired entries
// are removed and reported as absent.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if c.expired(ent) {
		c.removeElement(elem)
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	return ent.value, true
}

// Put stores value under key, resetting its TTL. The previous value is
// returned when the key already existed.
func (c *TTLCache[K, V]) Put(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		ent := elem.Value.(*entry[K, V])
		old := ent.value
		ent.value = value
		ent.expiresAt = c.deadline()
		return old, true
	}

	elem := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: c.deadline()})
	c.items[key] = elem

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	var zero V
	return zero, false
}

// Remove deletes key, invoking the evict callback when it existed.
func (c *TTLCache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	c.removeElement(elem)
	return ent.value, true
}

// Len reports the number of entries, including not-yet-swept expired ones.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries, invoking the evict callback for each.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			ent := elem.Value.(*entry[K, V])
			c.onEvict(ent.key, ent.value)
		}
	}
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *TTLCache[K, V]) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *TTLCache[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.expiresAt.IsZero() && c.now().After(ent.expiresAt)
}

// removeElement must be called with the lock held.
func (c *TTLCache[K, V]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
