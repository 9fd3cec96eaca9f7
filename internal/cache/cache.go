package cache

import (
	"strings"
	"sync"
	"time"

	"room-chat-service/internal/observability"
)

// Cache is a TTL-bounded get-or-set store used in front of the database.
// Mutations invalidate by exact key or by key prefix; a nil *Cache degrades
// every operation to a direct fill, so callers never branch on availability.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	done    chan struct{}
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// New creates a cache and starts its expiry janitor.
func New() *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// GetOrSet returns the cached value for key, or computes it via fill and
// stores it for ttl. A fill error is returned without caching; a read that
// finds an expired entry recomputes.
func (c *Cache) GetOrSet(key string, ttl time.Duration, fill func() (interface{}, error)) (interface{}, error) {
	if c == nil {
		return fill()
	}

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		observability.IncCacheHit()
		return cached.value, nil
	}

	observability.IncCacheMiss()
	value, err := fill()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return value, nil
}

// Invalidate drops one exact key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every key sharing the prefix. Derived views such as
// the paginated message pages of a room all live under one prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	close(c.done)
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, cached := range c.entries {
				if now.After(cached.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
