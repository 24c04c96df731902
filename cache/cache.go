package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/notecrawl/models"
)

// Detail is the part of a note that costs a click to read.
type Detail struct {
	Text     string
	Date     string
	Comments []models.Comment
}

// entry holds a cached detail with its creation timestamp.
type entry struct {
	detail    Detail
	createdAt time.Time
}

// Cache remembers note details already read during a run, so a card that is
// still rendered after a scroll is not opened a second time.
// It is safe for concurrent use. A nil *Cache is a valid, disabled cache.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a Cache holding at most maxEntries details for ttl each.
// maxEntries <= 0 returns nil (caching disabled).
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		return nil
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Key derives a cache key from a note link. Query and fragment are dropped
// because the feed attaches per-session tokens to the same note.
func Key(link string) string {
	if u, err := url.Parse(link); err == nil {
		u.RawQuery = ""
		u.Fragment = ""
		link = u.String()
	}
	h := sha256.Sum256([]byte(link))
	return hex.EncodeToString(h[:])
}

// Get returns the cached detail for key if present and not expired.
func (c *Cache) Get(key string) (Detail, bool) {
	if c == nil {
		return Detail{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return Detail{}, false
	}

	if c.ttl > 0 && time.Since(e.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return Detail{}, false
	}
	return e.detail, true
}

// Set stores a detail. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key string, d Detail) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		detail:    d,
		createdAt: time.Now(),
	}
}

// Len reports the number of cached details.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
