// Package cache is the exact-match, TTL-bounded query result cache:
// key = hash(session_id + ":" + normalized query), value = the full
// response payload. A hit older than the TTL is treated as a miss;
// Invalidate(session_id) drops every entry for that session in one
// call, which the ingestor uses after every corpus mutation.
//
// The LRU itself comes from hashicorp/golang-lru's expirable variant.
// Because keys are digests, the session a key belongs to can't be
// recovered from the key itself, so a session→keys secondary index (a
// plain map, not a second LRU) makes Invalidate possible without
// scanning the whole cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kadirpekel/docuquery/pkg/model"
)

// DefaultSize is the maximum number of cached responses retained at
// once, independent of TTL expiry.
const DefaultSize = 2048

// Cache is the process-wide query result cache.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.LRU[string, model.Response]
	bySession map[string]map[string]struct{}
}

// New creates a Cache with the given TTL and capacity. size <= 0 uses
// DefaultSize.
func New(ttl time.Duration, size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		lru:       lru.NewLRU[string, model.Response](size, nil, ttl),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Key computes the cache key for a (session_id, query) pair: the hex
// SHA-256 digest of `session_id + ":" + lower(strip(query))`.
func Key(sessionID, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(sessionID + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for (sessionID, query), if present
// and not expired.
func (c *Cache) Get(sessionID, query string) (model.Response, bool) {
	key := Key(sessionID, query)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Set stores resp under (sessionID, query), tracked against sessionID
// so Invalidate can remove it later without scanning the whole cache.
func (c *Cache) Set(sessionID, query string, resp model.Response) {
	key := Key(sessionID, query)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, resp)
	keys, ok := c.bySession[sessionID]
	if !ok {
		keys = make(map[string]struct{})
		c.bySession[sessionID] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate removes every cached entry belonging to sessionID. Called
// by the ingestor after every ingest or delete.
func (c *Cache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.bySession[sessionID]
	if !ok {
		return
	}
	for key := range keys {
		c.lru.Remove(key)
	}
	delete(c.bySession, sessionID)
}

// Len returns the number of entries currently cached (including ones
// that may have expired but haven't been evicted yet).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
