// Package cache provides a process-local block cache keyed by both block
// number and block hash. The two keys of a record share one entry and one TTL
// clock, so they appear and disappear together. TTL is fixed at insertion from
// the record's finality flag and is never re-evaluated.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/carbobit/apex-sdk/models"
)

type entry struct {
	record     models.BlockRecord
	number     uint64
	hashKey    string
	insertedAt time.Time
	ttl        time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache is safe for concurrent use. A single mutex guards both indices so a
// reader never observes a half-inserted number/hash pair.
type Cache struct {
	mu       sync.Mutex
	byNumber map[uint64]*entry
	byHash   map[string]*entry
	cfg      Config

	now func() time.Time // replaceable in tests
}

func New() *Cache {
	return WithConfig(DefaultConfig())
}

// WithConfig creates a cache with the given configuration. Zero-valued options
// fall back to their defaults.
func WithConfig(cfg Config) *Cache {
	if cfg.BlockTTLFinalized <= 0 {
		cfg.BlockTTLFinalized = DefaultBlockTTLFinalized
	}
	if cfg.BlockTTLRecent <= 0 {
		cfg.BlockTTLRecent = DefaultBlockTTLRecent
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Cache{
		byNumber: make(map[uint64]*entry),
		byHash:   make(map[string]*entry),
		cfg:      cfg,
		now:      time.Now,
	}
}

// PutBlock inserts the record under both its number and its hash, replacing
// any previous entry for either key. The TTL is chosen from the record's
// finality flag at this moment. Eviction runs inline when the cache is full:
// expired entries go first, then the oldest by insertion time.
func (c *Cache) PutBlock(record models.BlockRecord) {
	now := c.now()
	e := &entry{
		record:     record.Clone(),
		number:     record.Number,
		hashKey:    NormalizeHash(record.Hash),
		insertedAt: now,
		ttl:        c.cfg.BlockTTLRecent,
	}
	if record.IsFinalized {
		e.ttl = c.cfg.BlockTTLFinalized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace wholesale: drop any entry reachable from either key, including
	// its twin under the other index.
	if old, ok := c.byNumber[e.number]; ok {
		c.remove(old)
	}
	if old, ok := c.byHash[e.hashKey]; ok {
		c.remove(old)
	}

	for len(c.byNumber) >= c.cfg.MaxEntries {
		if !c.evictOne(now) {
			break
		}
	}

	c.byNumber[e.number] = e
	c.byHash[e.hashKey] = e
}

// GetBlockByNumber returns the cached record for the given number. An expired
// entry is removed from both indices and reported as a miss.
func (c *Cache) GetBlockByNumber(number uint64) (models.BlockRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(c.byNumber[number])
}

// GetBlockByHash is the hash-keyed counterpart of GetBlockByNumber. The hash
// is matched case-insensitively, with or without a 0x prefix.
func (c *Cache) GetBlockByHash(hash string) (models.BlockRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(c.byHash[NormalizeHash(hash)])
}

// Clear removes all entries from both indices.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byNumber = make(map[uint64]*entry)
	c.byHash = make(map[string]*entry)
}

// Len returns the number of cached blocks, counting expired entries that have
// not been touched yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byNumber)
}

func (c *Cache) get(e *entry) (models.BlockRecord, bool) {
	if e == nil {
		return models.BlockRecord{}, false
	}
	if e.expired(c.now()) {
		c.remove(e)
		return models.BlockRecord{}, false
	}
	return e.record.Clone(), true
}

// remove drops the entry from both indices. Callers hold the mutex.
func (c *Cache) remove(e *entry) {
	delete(c.byNumber, e.number)
	delete(c.byHash, e.hashKey)
}

// evictOne frees one slot, preferring expired entries, then the oldest by
// insertion time. Callers hold the mutex.
func (c *Cache) evictOne(now time.Time) bool {
	var oldest *entry
	for _, e := range c.byNumber {
		if e.expired(now) {
			c.remove(e)
			return true
		}
		if oldest == nil || e.insertedAt.Before(oldest.insertedAt) {
			oldest = e
		}
	}
	if oldest == nil {
		return false
	}
	c.remove(oldest)
	return true
}

// NormalizeHash lowercases a hex block hash and ensures a 0x prefix, so the
// same block caches under one key regardless of the caller's formatting.
func NormalizeHash(hash string) string {
	h := strings.TrimPrefix(strings.ToLower(hash), "0x")
	return "0x" + h
}
