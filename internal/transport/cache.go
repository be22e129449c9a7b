package transport

import (
	"bytes"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// responseCache holds GET bodies until their request TTL runs out.
type responseCache struct {
	cache *lru.Cache
}

func newResponseCache(maxSize int) (*responseCache, error) {
	if maxSize <= 0 {
		maxSize = 1
	}
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &responseCache{cache: cache}, nil
}

func (c *responseCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	entry := val.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return bytes.Clone(entry.body), true
}

func (c *responseCache) Set(key string, body []byte, ttl time.Duration) {
	c.cache.Add(key, cacheEntry{
		body:      bytes.Clone(body),
		expiresAt: time.Now().Add(ttl),
	})
}
