package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// sizedLRU adds a byte budget on top of an expirable LRU. maxBytes <= 0
// disables the budget.
//
// Sizes are tracked per key rather than derived from evicted values: Add on a
// key whose entry expired but was not yet reaped overwrites it without an
// eviction callback.
type sizedLRU[V any] struct {
	mu       sync.Mutex
	lru      *expirable.LRU[string, V]
	sizeOf   func(V) int
	maxBytes int64
	bytes    atomic.Int64

	// sizesMu is separate from mu: the evict callback runs both inside Set
	// and on the LRU's own reaper goroutine.
	sizesMu sync.Mutex
	sizes   map[string]int64
}

func newSizedLRU[V any](maxEntries, maxBytes int, ttl time.Duration, sizeOf func(V) int) *sizedLRU[V] {
	c := &sizedLRU[V]{sizeOf: sizeOf, maxBytes: int64(maxBytes), sizes: make(map[string]int64)}
	c.lru = expirable.NewLRU[string, V](maxEntries, func(key string, _ V) {
		c.forget(key)
	}, ttl)
	return c
}

func (c *sizedLRU[V]) forget(key string) {
	c.sizesMu.Lock()
	defer c.sizesMu.Unlock()
	if size, ok := c.sizes[key]; ok {
		delete(c.sizes, key)
		c.bytes.Add(-size)
	}
}

func (c *sizedLRU[V]) track(key string, size int64) {
	c.sizesMu.Lock()
	defer c.sizesMu.Unlock()
	if old, ok := c.sizes[key]; ok {
		c.bytes.Add(-old)
	}
	c.sizes[key] = size
	c.bytes.Add(size)
}

func (c *sizedLRU[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores v unless it alone exceeds the byte budget, then evicts the
// oldest entries until the budget holds again.
func (c *sizedLRU[V]) Set(key string, v V) {
	size := int64(c.sizeOf(v))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxBytes > 0 && size > c.maxBytes {
		c.lru.Remove(key)
		return
	}
	c.lru.Add(key, v)
	c.track(key, size)
	for c.maxBytes > 0 && c.bytes.Load() > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

func (c *sizedLRU[V]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *sizedLRU[V]) Len() int {
	return c.lru.Len()
}

func (c *sizedLRU[V]) Bytes() int64 {
	return c.bytes.Load()
}

func (c *sizedLRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.sizesMu.Lock()
	c.sizes = make(map[string]int64)
	c.bytes.Store(0)
	c.sizesMu.Unlock()
}
