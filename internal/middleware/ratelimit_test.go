package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/plaza/internal/cache"
	"github.com/zfogg/plaza/internal/logger"
)

func TestMemoryLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(RateLimitConfig{Name: "t", Limit: 3, Window: time.Minute})
	defer l.Stop()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, wait, _ := l.Allow(ctx, "ip")
	assert.False(t, ok)
	assert.InDelta(t, float64(20*time.Second), float64(wait), float64(time.Millisecond))

	ok, _, _ = l.Allow(ctx, "other-ip")
	assert.True(t, ok)

	now = now.Add(21 * time.Second)
	ok, _, _ = l.Allow(ctx, "ip")
	assert.True(t, ok)
}

func TestMemoryLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(RateLimitConfig{Name: "t", Limit: 2, Window: time.Minute})
	defer l.Stop()
	l.now = func() time.Time { return now }

	_, _, _ = l.Allow(context.Background(), "a")
	_, _, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 0, l.sweep())

	now = now.Add(time.Minute)
	assert.Equal(t, 2, l.sweep())
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimiterMiddlewareRejects(t *testing.T) {
	logger.InitializeNop()
	rl := NewRateLimiter(RateLimitConfig{Name: "test", Limit: 2, Window: time.Minute}, nil)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRateLimiterPerKey(t *testing.T) {
	logger.InitializeNop()
	rl := NewRateLimiter(RateLimitConfig{
		Name:    "test",
		Limit:   1,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}, nil)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	for _, client := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, client)
	}
}

func TestRateLimiterFallsBackWhenRedisDown(t *testing.T) {
	logger.InitializeNop()
	down := cache.NewFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	}))
	rl := NewRateLimiter(RateLimitConfig{Name: "test", Limit: 1, Window: time.Minute}, down)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
