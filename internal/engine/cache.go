package engine

import (
	"sync"
	"time"

	"github.com/fluxofin/dreflow/internal/pattern"
)

// MinCacheConfidence is the lowest confidence a result may have and still
// be worth remembering.
const MinCacheConfidence = 80.0

// CacheEntry is one remembered categorization.
type CacheEntry struct {
	StoredAt     time.Time
	CategoryID   string
	CategoryName string
	Confidence   float64
}

// CategoryCache remembers recent description-to-category decisions so
// repeated statement lines skip the rest of the waterfall. It is partitioned
// by company: one tenant's entries are invisible to every other tenant.
//
// The cache is a plain injectable component. Construct one per process and
// hand it to whoever needs it.
type CategoryCache struct {
	entries map[string]CacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewCategoryCache creates a cache. A zero ttl means entries never expire.
func NewCategoryCache(ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
	}
}

// cacheKey builds the tenant-scoped key, or "" when the description is not
// cacheable. Descriptions that normalize to nothing but generic bank
// vocabulary ("PAGAMENTO", "PIX ENVIADO") would collide across unrelated
// counterparties, so they are refused outright.
func cacheKey(companyID, description string) string {
	if companyID == "" {
		return ""
	}
	normalized := pattern.Normalize(description)
	if normalized == "" {
		return ""
	}
	if len(pattern.SignificantWords(description)) == 0 {
		return ""
	}
	return companyID + "\x00" + normalized
}

// Get looks up a cached decision for a description within one company.
func (c *CategoryCache) Get(companyID, description string) (CacheEntry, bool) {
	key := cacheKey(companyID, description)
	if key == "" {
		return CacheEntry{}, false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return CacheEntry{}, false
	}
	if c.ttl > 0 && time.Since(entry.StoredAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores a decision. It reports whether the entry was accepted; generic
// descriptions and low-confidence results are not.
func (c *CategoryCache) Put(companyID, description string, entry CacheEntry) bool {
	key := cacheKey(companyID, description)
	if key == "" || entry.CategoryID == "" || entry.Confidence < MinCacheConfidence {
		return false
	}
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return true
}

// Clear drops all entries for one company.
func (c *CategoryCache) Clear(companyID string) {
	prefix := companyID + "\x00"

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries across all companies.
func (c *CategoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
