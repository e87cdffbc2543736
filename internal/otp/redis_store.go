package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/plaza/internal/cache"
)

// RedisStore keeps codes as plain keys with a Redis-enforced TTL
type RedisStore struct {
	client *cache.RedisClient
	prefix string
}

func NewRedisStore(client *cache.RedisClient) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:"}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + normalizeEmail(email)
}

// Save replaces any pending code for email
func (s *RedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.SetEx(ctx, s.key(email), code, ttl); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, s.key(email))
	if errors.Is(err, cache.ErrMiss) {
		return "", ErrNotFound()
	}
	if err != nil {
		return "", fmt.Errorf("failed to read otp: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email))
}
