// Package redisc holds the Redis client and the shared rate-limit
// counters. Redis is optional: when no REDIS_URL is configured the API
// falls back to per-process limiting.
package redisc

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func InitRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// Hit increments the fixed-window counter for key and returns the count in
// the current window. The expiry is set only when the key is new, so the
// window does not slide with traffic.
func Hit(client *redis.Client, key string, window time.Duration) (int64, error) {
	ctx := context.Background()
	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
