package otp

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	apperrors "github.com/zfogg/plaza/internal/errors"
)

// Store keeps at most one pending code per email. Get returns a NOT_FOUND
// error for a missing or expired code; the two cases are indistinguishable.
type Store interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// ErrNotFound builds the error returned for a missing code
func ErrNotFound() error {
	return apperrors.NotFound("OTP")
}

// Matches compares a submitted code with the stored one in constant time
func Matches(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(submitted))) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
