package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/plaza/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps codes in the otps table. Expiry is enforced on read and
// rows are removed by Purge.
type DBStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

// WithClock overrides the store's time source
func (s *DBStore) WithClock(now func() time.Time) *DBStore {
	s.now = now
	return s
}

// Save upserts the code for email
func (s *DBStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	now := s.now().UTC()
	row := models.OTP{
		Email:     normalizeEmail(email),
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "created_at", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *DBStore) Get(ctx context.Context, email string) (string, error) {
	var row models.OTP
	err := s.db.WithContext(ctx).
		Where("email = ? AND expires_at > ?", normalizeEmail(email), s.now().UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound()
	}
	if err != nil {
		return "", fmt.Errorf("failed to read otp: %w", err)
	}
	return row.Code, nil
}

func (s *DBStore) Delete(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Delete(&models.OTP{}).Error
}

// Purge removes expired codes and returns how many were deleted
func (s *DBStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}
