package transport

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocumentCache caches raw document bytes for GET round trips, keyed by
// request URL. Caching is purely a transport concern: the store's identity
// map never sees it, and a cache hit flows through the same decode and
// materialization path as a network response.
type DocumentCache interface {
	// Get retrieves cached document bytes. A miss is ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores document bytes with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Clear removes every cached document.
	Clear(ctx context.Context) error
}

// ErrCacheMiss is returned when a key is not in the cache.
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss.
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// RedisCache is a Redis-backed DocumentCache.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a document cache on an existing Redis client. The
// prefix namespaces keys so the cache can share a database.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "sideload:doc:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves cached document bytes.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}
	return value, nil
}

// Set stores document bytes with a TTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Clear removes every key under the cache's prefix.
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
