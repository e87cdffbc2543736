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

// Direction selects which side of the follow edge a listing walks
type Direction int

const (
	// Followers lists users who follow the subject
	Followers Direction = iota
	// Following lists users the subject follows
	Following
)

// FollowRepository manages the follows edge table
type FollowRepository interface {
	Create(ctx context.Context, followerID, followeeID string) error
	Delete(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)

	// List returns one page of connections filtered by a case-insensitive
	// username substring; Count uses the identical predicate.
	List(ctx context.Context, userID string, dir Direction, query string, limit, offset int) ([]models.User, error)
	Count(ctx context.Context, userID string, dir Direction, query string) (int64, error)

	FriendsOfFriends(ctx context.Context, userID string, exclude []string, limit int) ([]models.User, error)
	RandomUsers(ctx context.Context, exclude []string, limit int) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return apperrors.InvalidArgument("You cannot follow yourself")
	}
	err := r.db.WithContext(ctx).Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict("Already following this user")
	}
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("database error: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("followee_id", &ids).Error
	return ids, err
}

// connections scopes users to one side of userID's edges plus the optional
// username filter
func (r *followRepository) connections(ctx context.Context, userID string, dir Direction, query string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if dir == Followers {
		q = q.Joins("JOIN follows ON follows.follower_id = users.id").Where("follows.followee_id = ?", userID)
	} else {
		q = q.Joins("JOIN follows ON follows.followee_id = users.id").Where("follows.follower_id = ?", userID)
	}
	if strings.TrimSpace(query) != "" {
		q = q.Where("LOWER(users.username) LIKE ? ESCAPE '\\'", ContainsPattern(query))
	}
	return q
}

func (r *followRepository) List(ctx context.Context, userID string, dir Direction, query string, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.connections(ctx, userID, dir, query).
		Order("follows.created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *followRepository) Count(ctx context.Context, userID string, dir Direction, query string) (int64, error) {
	var count int64
	err := r.connections(ctx, userID, dir, query).Count(&count).Error
	return count, err
}

// FriendsOfFriends returns users followed by the people userID follows,
// excluding the given ids, deduplicated
func (r *followRepository) FriendsOfFriends(ctx context.Context, userID string, exclude []string, limit int) ([]models.User, error) {
	if limit <= 0 {
		return nil, nil
	}
	direct := r.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
	secondHop := r.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id IN (?)", direct)

	q := r.db.WithContext(ctx).
		Where("id IN (?)", secondHop).
		Where("id <> ?", userID)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var users []models.User
	err := q.Order("username ASC").Limit(limit).Find(&users).Error
	return users, err
}

// RandomUsers samples users not in exclude
func (r *followRepository) RandomUsers(ctx context.Context, exclude []string, limit int) ([]models.User, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var users []models.User
	err := q.Order("RANDOM()").Limit(limit).Find(&users).Error
	return users, err
}
