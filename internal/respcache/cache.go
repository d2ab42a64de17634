// Package respcache caches complete non-streaming answers keyed by a stable
// fingerprint of (query, model, strategy). The fingerprint is a SHA-256 over
// the delimiter-separated fields, so hits survive restarts and redeploys.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nyayagpt/nyayagpt/models"
)

const keyPrefix = "cache:"

// scanBatch bounds how many keys one SCAN iteration asks for during Clear.
const scanBatch = 100

// Cache is a read-through/write-through cache for non-streaming responses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New creates a response cache. client may be nil when Redis failed to
// initialize; the cache then always misses and writes become no-ops.
func New(client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Fingerprint derives the deterministic cache key identifier for a
// (query, model, strategy) tuple.
func Fingerprint(query, model, strategy string) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strategy))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for the tuple, or nil on a miss. Store
// failures are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, query, model, strategy string) *models.QueryResponse {
	if c.client == nil {
		return nil
	}

	key := keyPrefix + Fingerprint(query, model, strategy)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("cache get: %v", err)
		}
		return nil
	}

	var resp models.QueryResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Printf("cache decode: %v", err)
		return nil
	}
	c.logger.Printf("cache hit for query: %s", truncate(query, 30))
	return &resp
}

// Put stores a response under the tuple's fingerprint with the fixed TTL.
// Failures are logged, never returned.
func (c *Cache) Put(ctx context.Context, query, model, strategy string, resp *models.QueryResponse) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Printf("cache encode: %v", err)
		return
	}
	key := keyPrefix + Fingerprint(query, model, strategy)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Printf("cache put: %v", err)
		return
	}
	c.logger.Printf("cached response for query: %s", truncate(query, 30))
}

// Clear deletes every cache-namespaced key via cursor-based scanning and
// returns how many entries were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	if c.client == nil {
		return 0, errors.New("redis not initialized")
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
