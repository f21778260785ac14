// Package cache provides caching of authorization decisions
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Stats contains cache statistics
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Decisions is an LRU cache of boolean authorization decisions with TTL
// support. A security context's granted roles and permissions are immutable
// for its lifetime, so caching per-context decision results is sound; the
// context clears its cache on invalidation.
type Decisions struct {
	capacity int
	ttl      time.Duration

	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex

	hits   uint64
	misses uint64
}

type entry struct {
	key       string
	decision  bool
	expiresAt time.Time
}

// NewDecisions creates a decision cache. Capacity must be positive; a zero
// ttl disables expiry.
func NewDecisions(capacity int, ttl time.Duration) *Decisions {
	return &Decisions{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a cached decision
func (c *Decisions) Get(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return false, false
	}

	e := elem.Value.(*entry)
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeElement(elem)
		atomic.AddUint64(&c.misses, 1)
		return false, false
	}

	c.order.MoveToFront(elem)
	atomic.AddUint64(&c.hits, 1)
	return e.decision, true
}

// Set stores a decision
func (c *Decisions) Set(key string, decision bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.decision = decision
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(&entry{key: key, decision: decision, expiresAt: expiresAt})
	c.items[key] = elem
}

// Clear removes all entries
func (c *Decisions) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache statistics
func (c *Decisions) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)
	total := hits + misses

	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{Size: size, Hits: hits, Misses: misses, HitRate: hitRate}
}

func (c *Decisions) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.items, e.key)
	c.order.Remove(elem)
}

func (c *Decisions) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
	}
}
