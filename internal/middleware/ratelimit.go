package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/cache"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/util"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for one limiter
type RateLimitConfig struct {
	// Name labels the limiter in keys and metrics
	Name string
	// Requests per window
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "default", Limit: 100, Window: time.Minute}
}

// AuthRateLimitConfig is stricter, for login and signup
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "auth", Limit: 10, Window: time.Minute}
}

func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "upload", Limit: 20, Window: time.Minute}
}

func SearchRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "search", Limit: 60, Window: time.Minute}
}

// Limiter decides whether key may make another request. When it refuses,
// retryAfter says how long until it would accept.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func NewTokenBucket(maxTokens, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now,
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
		tb.lastRefill = now
	}
}

// take spends one token if available, otherwise reports the wait for one
func (tb *TokenBucket) take(now time.Time) (bool, time.Duration) {
	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	wait := (1 - tb.tokens) / tb.refillRate
	return false, time.Duration(wait * float64(time.Second))
}

// MemoryLimiter keeps a token bucket per key in process memory. Idle
// buckets are swept every window.
type MemoryLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*TokenBucket
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewMemoryLimiter(cfg RateLimitConfig) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:     cfg,
		buckets: make(map[string]*TokenBucket),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[key]
	if !ok {
		rate := float64(l.cfg.Limit) / l.cfg.Window.Seconds()
		bucket = NewTokenBucket(float64(l.cfg.Limit), rate, now)
		l.buckets[key] = bucket
	}
	allowed, wait := bucket.take(now)
	return allowed, wait, nil
}

// sweep drops buckets that have refilled completely
func (l *MemoryLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		b.refill(now)
		if b.tokens >= b.maxTokens {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *MemoryLimiter) sweepLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// Stop ends the sweeper
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// RateLimiter enforces one config, using Redis when available and the
// in-memory limiter otherwise
type RateLimiter struct {
	cfg    RateLimitConfig
	redis  Limiter
	memory *MemoryLimiter
}

// NewRateLimiter builds a limiter. A nil redis client keeps every count in
// process memory.
func NewRateLimiter(cfg RateLimitConfig, redis *cache.RedisClient) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	rl := &RateLimiter{cfg: cfg, memory: NewMemoryLimiter(cfg)}
	if redis != nil {
		rl.redis = NewRedisLimiter(cfg, redis)
	}
	return rl
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, time.Duration) {
	if rl.redis != nil {
		allowed, wait, err := rl.redis.Allow(ctx, key)
		if err == nil {
			return allowed, wait
		}
		logger.WarnWithErr("Redis rate limiter failed, using in-memory limiter", err,
			zap.String("limiter", rl.cfg.Name),
		)
	}
	allowed, wait, _ := rl.memory.Allow(ctx, key)
	return allowed, wait
}

// Middleware rejects requests over the limit with 429 and Retry-After
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, wait := rl.allow(c.Request.Context(), rl.cfg.KeyFunc(c))
		if allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(wait.Round(time.Millisecond).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		metrics.Get().RateLimitExceededTotal.WithLabelValues(rl.cfg.Name).Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit))
		c.Header("X-RateLimit-Remaining", "0")
		util.RespondWithAPIError(c, apperrors.RateLimited(""))
	}
}

func (rl *RateLimiter) Stop() {
	rl.memory.Stop()
}
