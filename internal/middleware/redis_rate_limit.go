package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/plaza/internal/cache"
)

// RedisLimiter is a fixed-window counter shared by every server instance
type RedisLimiter struct {
	cfg    RateLimitConfig
	client *cache.RedisClient
}

func NewRedisLimiter(cfg RateLimitConfig, client *cache.RedisClient) *RedisLimiter {
	return &RedisLimiter{cfg: cfg, client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, ttl, err := l.client.IncrWindow(ctx, fmt.Sprintf("rate_limit:%s:%s", l.cfg.Name, key), l.cfg.Window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(l.cfg.Limit) {
		if ttl <= 0 {
			ttl = l.cfg.Window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)
