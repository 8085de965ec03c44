// Package redis provides a response cache backed by Redis, for
// deployments where cached stories should survive restarts or be shared
// between instances.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResponseCache = (*Cache)(nil)

// DefaultTTL is how long entries stay valid.
const DefaultTTL = 15 * time.Minute

// keyPrefix namespaces cache entries within a shared Redis instance.
const keyPrefix = "fabula:resp:"

// scanBatch is the COUNT hint for SCAN during invalidation.
const scanBatch = 200

// connectTimeout bounds the initial connectivity check.
const connectTimeout = 5 * time.Second

// Cache is a Redis-backed implementation of driven.ResponseCache.
// Entry lifetime is enforced with per-key TTLs; capacity is Redis's
// concern (maxmemory policy), not the adapter's.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
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

// New connects to Redis at the given URL and verifies connectivity.
func New(url string, opts ...Option) (*Cache, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client. The cache owns the client and
// closes it on Close.
func NewWithClient(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached result. Missing and expired keys are misses; a
// payload that no longer unmarshals is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*domain.GenerationResult, bool, error) {
	storageKey := c.storageKey(key)
	payload, err := c.client.Get(ctx, storageKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached response: %w", err)
	}

	var result domain.GenerationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		_ = c.client.Del(ctx, storageKey).Err()
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores a result under the key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, result *domain.GenerationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	if err := c.client.Set(ctx, c.storageKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached response: %w", err)
	}
	return nil
}

// InvalidatePersona drops every entry for the persona using a cursor scan,
// so large keyspaces are walked without blocking the server.
func (c *Cache) InvalidatePersona(ctx context.Context, personaID string) error {
	pattern := keyPrefix + personaID + ":*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan cached responses: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cached responses: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the client connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// storageKey maps a domain cache key onto a Redis key. The persona ID is
// kept in clear for prefix invalidation; the idea and parameter parts are
// hashed so keys stay short and free of separator bytes.
func (c *Cache) storageKey(key string) string {
	personaID, rest, _ := strings.Cut(key, "\n")
	sum := sha256.Sum256([]byte(rest))
	return keyPrefix + personaID + ":" + hex.EncodeToString(sum[:])
}
