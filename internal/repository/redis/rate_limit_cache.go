package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimiter bounds how often an operation may run per key.
type RateLimiter interface {
	Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow increments the counter for scope:key and reports whether the
// caller is still inside the window's limit.
func (c *RateLimitCache) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rateLimitKey := rateLimitPrefix + scope + ":" + key

	count, err := c.client.IncrWithExpire(ctx, rateLimitKey, window)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("scope", scope),
			zap.Duration("window", window),
			zap.Error(err))
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	allowed := count <= int64(limit)
	if !allowed {
		util.Warn("Rate limit exceeded",
			zap.String("scope", scope),
			zap.Int64("count", count),
			zap.Int("limit", limit))
	}

	return allowed, nil
}
