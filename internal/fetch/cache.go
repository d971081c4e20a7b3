package fetch

import (
	"sync"
	"time"
)

// Cache holds fetched page bodies with a TTL. A zero or negative TTL
// disables caching entirely.
type Cache struct {
	mu       sync.Mutex
	pages    map[string][]byte
	cachedAt map[string]time.Time
	ttl      time.Duration
}

// NewCache creates a page cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		pages:    make(map[string][]byte),
		cachedAt: make(map[string]time.Time),
		ttl:      ttl,
	}
}

// Get returns the cached body for a URL if present and not expired.
func (c *Cache) Get(url string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	body, ok := c.pages[url]
	if !ok {
		return nil, false
	}
	if time.Since(c.cachedAt[url]) > c.ttl {
		delete(c.pages, url)
		delete(c.cachedAt, url)
		return nil, false
	}
	return body, true
}

// Set stores a page body.
func (c *Cache) Set(url string, body []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[url] = body
	c.cachedAt[url] = time.Now()
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, at := range c.cachedAt {
		if time.Since(at) > c.ttl {
			delete(c.pages, url)
			delete(c.cachedAt, url)
			removed++
		}
	}
	return removed
}
