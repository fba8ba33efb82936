// Package cache stores rendered script previews and API rate-limit counters.
// Production uses Redis; Memory serves tests and deployments without Redis.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
)

// ScriptCache caches rendered scripts by key.
type ScriptCache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// RateLimitCheck counts one request against key in a fixed window and
	// reports whether it is within maxRequests.
	RateLimitCheck(ctx context.Context, key string, maxRequests int64, window time.Duration) (bool, error)
	Close() error
}

// ScriptKey builds the cache key of one rendered step. fingerprint identifies
// the documents the script was rendered from, so edits never serve stale
// scripts.
func ScriptKey(maintenanceID, fingerprint, operatorID string, stepNo int) string {
	return fmt.Sprintf("janus:script:%s:%s:%s:%d", maintenanceID, fingerprint, operatorID, stepNo)
}

// Redis is a ScriptCache backed by a Redis server.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis connects to Redis at addr ("host:port") and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, logger *zap.Logger) (*Redis, error) {
	logger = logging.Named(logger, "cache")
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("connected to Redis", zap.String("addr", addr))
	return &Redis{client: client, logger: logger}, nil
}

// Close shuts down the Redis client connection.
func (c *Redis) Close() error {
	if c.client != nil {
		c.logger.Info("closing Redis connection")
		return c.client.Close()
	}
	return nil
}

func (c *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A zero TTL means the key does not expire.
func (c *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

// rateLimitLua increments the counter and sets the TTL only on the first
// request of the window, so later requests never extend it.
var rateLimitLua = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

func (c *Redis) RateLimitCheck(ctx context.Context, key string, maxRequests int64, window time.Duration) (bool, error) {
	windowSeconds := int(window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	count, err := rateLimitLua.Run(ctx, c.client, []string{"janus:ratelimit:" + key}, windowSeconds).Int64()
	if err != nil {
		return false, fmt.Errorf("cache: rate limit check: %w", err)
	}
	return count <= maxRequests, nil
}

// Memory is an in-process ScriptCache.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	count   int64
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return e, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return e, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	return e.value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) RateLimitCheck(_ context.Context, key string, maxRequests int64, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = "ratelimit:" + key
	e, ok := m.live(key)
	if !ok {
		e = memoryEntry{expires: m.now().Add(window)}
	}
	e.count++
	m.entries[key] = e
	return e.count <= maxRequests, nil
}

// Len returns the number of live script entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.entries {
		if _, ok := m.live(key); ok && !strings.HasPrefix(key, "ratelimit:") {
			n++
		}
	}
	return n
}

func (m *Memory) Close() error { return nil }
