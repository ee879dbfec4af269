package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisAvailabilityCache struct {
	client *redis.Client
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisAvailabilityCache(client *redis.Client) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client}
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// CacheKey builds the cache key for a room availability query.
func CacheKey(roomID int64, start, end time.Time) string {
	return fmt.Sprintf("availability:%d:%s:%s", roomID,
		start.UTC().Format("2006-01-02T15"), end.UTC().Format("2006-01-02T15"))
}

func roomKeyPattern(roomID int64) string {
	return fmt.Sprintf("availability:%d:*", roomID)
}

func (r *RedisAvailabilityCache) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get availability from redis: %w", err)
	}
	return val, true, nil
}

func (r *RedisAvailabilityCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

// Invalidate drops all cached answers for a room. Booking writes call this so
// stale availability never outlives a change by more than the scan.
func (r *RedisAvailabilityCache) Invalidate(ctx context.Context, roomID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	iter := r.client.Scan(ctx, 0, roomKeyPattern(roomID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan availability keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete availability keys: %w", err)
	}
	return nil
}
