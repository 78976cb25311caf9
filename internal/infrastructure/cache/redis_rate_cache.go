package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appshipping "github.com/retailops/fulfillment/internal/application/shipping"
	"github.com/retailops/fulfillment/internal/domain/shipping"
	"github.com/retailops/fulfillment/internal/infrastructure/config"
)

// RedisRateCache shares rate quotes across instances through Redis.
// Cache failures degrade to a miss; quoting never depends on Redis
// being up.
type RedisRateCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisRateCache creates a cache with its own Redis client
func NewRedisRateCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRateCacheWithClient(client, logger), nil
}

// NewRedisRateCacheWithClient creates a cache sharing an existing client
func NewRedisRateCacheWithClient(client *redis.Client, logger *zap.Logger) *RedisRateCache {
	return &RedisRateCache{
		client:    client,
		keyPrefix: "fulfillment:",
		logger:    logger,
	}
}

// Get returns a cached quote if present
func (c *RedisRateCache) Get(ctx context.Context, key string) ([]shipping.RateOption, bool) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Rate cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var opts []shipping.RateOption
	if err := json.Unmarshal(raw, &opts); err != nil {
		c.logger.Warn("Rate cache entry corrupted, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, c.keyPrefix+key)
		return nil, false
	}
	return opts, true
}

// Set stores a quote with the given TTL
func (c *RedisRateCache) Set(ctx context.Context, key string, opts []shipping.RateOption, ttl time.Duration) {
	raw, err := json.Marshal(opts)
	if err != nil {
		c.logger.Warn("Rate cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		c.logger.Warn("Rate cache write failed", zap.Error(err))
	}
}

// Close closes the Redis client
func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

var _ appshipping.RateCache = (*RedisRateCache)(nil)
