package chaindata

import (
	"sync"
	"time"
)

// Clock returns the current time. Injected so cache expiry is testable
// with a fake clock.
type Clock func() time.Time

// cacheKey identifies one provider call result.
type cacheKey struct {
	Provider string
	Chain    string
	Address  string
	Call     string
}

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// ttlCache is a fixed-TTL cache owned by a Gateway instance. Entries are
// lazily dropped on the first read past their TTL; there is no sweeper.
type ttlCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     Clock
}

func newTTLCache(ttl time.Duration, now Clock) *ttlCache {
	if now == nil {
		now = time.Now
	}
	return &ttlCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get returns the cached value for key if present and fresh. An expired
// entry is deleted on the way out.
func (c *ttlCache) get(key cacheKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// set stores a value with the current fetch time.
func (c *ttlCache) set(key cacheKey, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}

// len reports the number of entries, expired or not. Test helper.
func (c *ttlCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
