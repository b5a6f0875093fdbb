package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// CacheEntry holds a cached value with expiration
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// LRUCache is a thread-safe LRU cache with TTL support.
// A zero or negative ttl disables expiry.
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	lru      *list.List
}

type entry[V any] struct {
	key   string
	value CacheEntry[V]
}

// NewLRUCache creates a new LRU cache with the given capacity and TTL
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get retrieves a value from the cache
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.lookup(key)
	if !ok {
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*entry[V]).value.Value, true
}

// Set adds or updates a value in the cache
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value)
}

// Update applies fn to the current value for key (zero value and false when
// absent or expired) and stores the result, all under the cache lock.
func (c *LRUCache[V]) Update(key string, fn func(current V, ok bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current V
	elem, ok := c.lookup(key)
	if ok {
		current = elem.Value.(*entry[V]).value.Value
	}
	next := fn(current, ok)
	c.store(key, next)
	return next
}

// Delete removes key from the cache.
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.lru.Remove(elem)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.lru.Init()
}

// Len returns the number of items in the cache
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// lookup returns the live element for key, dropping it if it has expired.
// Caller holds c.mu.
func (c *LRUCache[V]) lookup(key string) (*list.Element, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry[V])
	if c.ttl > 0 && c.now().After(ent.value.ExpiresAt) {
		c.lru.Remove(elem)
		delete(c.items, key)
		return nil, false
	}
	return elem, true
}

// store inserts or refreshes key and evicts the oldest entry when over capacity.
// Caller holds c.mu.
func (c *LRUCache[V]) store(key string, value V) {
	ce := CacheEntry[V]{Value: value, ExpiresAt: c.now().Add(c.ttl)}

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry[V]).value = ce
		return
	}

	elem := c.lru.PushFront(&entry[V]{key: key, value: ce})
	c.items[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}
}

// HashKey creates a cache key from arbitrary byte segments.
func HashKey(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
