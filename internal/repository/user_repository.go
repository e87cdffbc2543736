package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles database operations for users. Lookups that find
// nothing return an apperrors NOT_FOUND error.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	// FindConflict returns the user holding email or username, or nil
	FindConflict(ctx context.Context, email, username string) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)

	SetToken(ctx context.Context, userID string, token *string) error
	SetBlocked(ctx context.Context, email string, blocked bool) (*models.User, error)
	SetProfilePicture(ctx context.Context, userID, url, key string) error

	Search(ctx context.Context, query string, limit, offset int) ([]models.User, error)
	ListAll(ctx context.Context, batch int, fn func([]models.User) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository bound to db (which may be a transaction)
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return apperrors.InvalidArgument("user is required")
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.AlreadyExists("Username or email already exists")
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", userID))
}

// GetByEmail is case-insensitive
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("LOWER(email) = ?", normalize(email)))
}

func (r *userRepository) GetByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.NotFound("User")
	}
	return r.first(r.db.WithContext(ctx).Where("token = ?", token))
}

func (r *userRepository) FindConflict(ctx context.Context, email, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? OR LOWER(username) = ?", normalize(email), normalize(username)).
		Order("created_at ASC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) SetToken(ctx context.Context, userID string, token *string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("token", token).Error
}

func (r *userRepository) SetBlocked(ctx context.Context, email string, blocked bool) (*models.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(user).Update("is_blocked", blocked).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (r *userRepository) SetProfilePicture(ctx context.Context, userID, url, key string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"profile_picture": url, "profile_picture_key": key})
	if res.Error != nil {
		return fmt.Errorf("database error: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("User")
	}
	return nil
}

// Search matches username or email by case-insensitive substring
func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	pattern := ContainsPattern(query)
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("username ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ListAll walks every user in batches, used by search reindexing
func (r *userRepository) ListAll(ctx context.Context, batch int, fn func([]models.User) error) error {
	var users []models.User
	return r.db.WithContext(ctx).FindInBatches(&users, batch, func(tx *gorm.DB, _ int) error {
		return fn(users)
	}).Error
}

func (r *userRepository) first(q *gorm.DB) (*models.User, error) {
	var user models.User
	err := q.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a lower-cased LIKE pattern matching q anywhere,
// with LIKE wildcards in q escaped. Use with ESCAPE '\'.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}
