// Package cache holds a bounded in-memory store of analysis results keyed by
// content fingerprint.
package cache

import (
	"crypto/md5" //nolint:gosec // fingerprinting only, not security
	"encoding/hex"
	"sync"

	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

// Fingerprint hashes the exact input bytes. Whitespace and casing variants
// produce distinct keys on purpose: near-duplicates are not deduplicated.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Cache evicts in insertion order (FIFO), not by recency of use: reading an
// entry does not protect it. Entries never expire by time.
type Cache struct {
	bound int

	mu      sync.Mutex
	entries map[string]domain.Analysis
	order   []string
}

// New builds a cache holding at most bound entries.
func New(bound int) *Cache {
	return &Cache{
		bound:   bound,
		entries: map[string]domain.Analysis{},
	}
}

// Get returns the cached analysis for fp, if present.
func (c *Cache) Get(fp string) (domain.Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[fp]
	return a, ok
}

// Put inserts the analysis; when the bound is exceeded the single
// oldest-inserted entry is removed.
func (c *Cache) Put(fp string, a domain.Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[fp]; !ok {
		c.order = append(c.order, fp)
	}
	c.entries[fp] = a
	for len(c.entries) > c.bound && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]domain.Analysis{}
	c.order = nil
}
