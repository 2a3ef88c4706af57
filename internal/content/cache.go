package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Cache stores fetched documents by canonical path.
type Cache interface {
	Get(ctx context.Context, path string) ([]byte, bool, error)
	Set(ctx context.Context, path string, raw []byte) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the configured Redis instance.
func NewRedisCache(cfg *config.CacheConfig) (*RedisCache, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opt), cfg.KeyPrefix, cfg.TTL.Duration), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *RedisCache) Set(ctx context.Context, path string, raw []byte) error {
	return c.rdb.Set(ctx, c.prefix+path, raw, c.ttl).Err()
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
