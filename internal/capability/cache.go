package capability

import (
	"context"
	"sync"
	"time"
)

// LRUCache is an in-process LRU cache with per-entry TTL, used to memoize
// resolved intents and suggestion responses.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*lruEntry
	head     *lruEntry
	tail     *lruEntry
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// NewLRUCache returns a cache holding at most capacity entries.
func NewLRUCache(capacity int) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{
		capacity: capacity,
		items:    make(map[string]*lruEntry),
	}
}

// Get returns the cached value for key when present and unexpired, and
// refreshes its recency. Expired entries are dropped on access.
func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.unlink(e)
		delete(c.items, key)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRUCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expires
		c.moveToFront(e)
		return nil
	}

	e := &lruEntry{key: key, value: value, expiresAt: expires}
	c.pushFront(e)
	c.items[key] = e

	if len(c.items) > c.capacity && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.items, evicted.key)
	}
	return nil
}

// Delete removes key from the cache; deleting an absent key is a no-op.
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
	return nil
}

// Len returns the number of live entries, counting unexpired ones only.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := time.Now()
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *LRUCache) moveToFront(e *lruEntry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRUCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRUCache) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

var _ Cache = (*LRUCache)(nil)
