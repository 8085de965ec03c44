// Package memory provides an in-process response cache with TTL expiry
// and LRU eviction.
package memory

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResponseCache = (*Cache)(nil)

// DefaultTTL is how long entries stay valid.
const DefaultTTL = 15 * time.Minute

// DefaultMaxEntries caps the cache size before LRU eviction.
const DefaultMaxEntries = 256

// entry is one cached result with its expiry.
type entry struct {
	key       string
	result    *domain.GenerationResult
	expiresAt time.Time
}

// Cache is an in-memory implementation of driven.ResponseCache.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used

	// now is replaceable in tests for deterministic expiry.
	now func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries sets the capacity before LRU eviction.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// New creates a cache with the given options.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached result. Expired entries count as misses and are
// removed. Returned results are clones; callers may mutate them freely.
func (c *Cache) Get(_ context.Context, key string) (*domain.GenerationResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	ent := el.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.remove(el)
		return nil, false, nil
	}

	c.order.MoveToFront(el)
	return ent.result.Clone(), true, nil
}

// Set stores a result under the key, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Set(_ context.Context, key string, result *domain.GenerationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := result.Clone()
	expires := c.now().Add(c.ttl)

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.result = stored
		ent.expiresAt = expires
		c.order.MoveToFront(el)
		return nil
	}

	el := c.order.PushFront(&entry{key: key, result: stored, expiresAt: expires})
	c.entries[key] = el

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
	return nil
}

// InvalidatePersona drops every entry for the persona. Cache keys start
// with the persona ID followed by a newline (see domain.CacheKey).
func (c *Cache) InvalidatePersona(_ context.Context, personaID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := personaID + "\n"
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(el)
		}
	}
	return nil
}

// Close drops all entries.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Len returns the number of live entries. Used by tests and stats.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove drops an element under the lock.
func (c *Cache) remove(el *list.Element) {
	ent := el.Value.(*entry)
	delete(c.entries, ent.key)
	c.order.Remove(el)
}
