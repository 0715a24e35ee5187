package answercache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
)

type entry struct {
	answer    string
	createdAt time.Time
}

// Cache stores generated answers keyed by normalized question and
// knowledge fingerprint. Entries expire after the TTL; when the cache
// is full the oldest entries make room for new ones. Eviction happens
// inline on writes, there is no background sweeper.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	logger   arbor.ILogger

	now func() time.Time // test hook
}

// NewCache creates a response cache.
func NewCache(config *common.CacheConfig, logger arbor.ILogger) *Cache {
	return &Cache{
		entries:  make(map[string]entry),
		ttl:      common.ParseDurationOr(config.TTL, 5*time.Minute),
		capacity: config.Capacity,
		logger:   logger,
		now:      time.Now,
	}
}

// Key derives the cache key for a normalized question against a
// knowledge fingerprint. Any change to the underlying content changes
// the fingerprint and therefore misses the old entries.
func Key(normalizedQuestion, fingerprint string) string {
	sum := sha256.Sum256([]byte(normalizedQuestion + ":" + fingerprint))
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes knowledge content for use in cache keys.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached answer for key, if present and fresh.
// Reads never mutate the cache: an expired entry is reported as a miss
// and left for the sweep in Store.
func (c *Cache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.createdAt) >= c.ttl {
		return "", false
	}
	return e.answer, true
}

// Store caches an answer, evicting expired and then oldest entries if
// the cache is at capacity.
func (c *Cache) Store(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Drop expired entries first, they are free capacity.
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
		}
	}

	// Still full: evict oldest-created until there is room.
	for len(c.entries) >= c.capacity {
		oldestKey := ""
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.createdAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.createdAt
			}
		}
		if oldestKey == "" {
			break
		}
		delete(c.entries, oldestKey)
		c.logger.Debug().Str("key", oldestKey).Msg("Evicted oldest cached answer")
	}

	c.entries[key] = entry{answer: answer, createdAt: now}
}

// Clear drops all entries and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := len(c.entries)
	c.entries = make(map[string]entry)
	return size
}

// Size returns the current entry count, expired entries included until
// they are touched.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
