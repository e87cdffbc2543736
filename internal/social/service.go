// Package social implements the follow graph: following, suggestions,
// connection listings and profiles.
package social

import (
	"context"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/repository"
	"github.com/zfogg/plaza/internal/storage"
	"github.com/zfogg/plaza/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// PageSize bounds follower and following listings
	PageSize = 10
	// SuggestionCount is the number of suggestions returned when enough users exist
	SuggestionCount = 10
)

type Service struct {
	db      *gorm.DB
	users   repository.UserRepository
	follows repository.FollowRepository
	images  storage.ImageStore
	events  events.Publisher
}

func NewService(db *gorm.DB, images storage.ImageStore, publisher events.Publisher) *Service {
	if images == nil {
		images = storage.Disabled{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:      db,
		users:   repository.NewUserRepository(db),
		follows: repository.NewFollowRepository(db),
		images:  images,
		events:  publisher,
	}
}

// Follow makes selfID follow targetID and returns the target
func (s *Service) Follow(ctx context.Context, selfID, targetID string) (*models.User, error) {
	if selfID == targetID {
		return nil, apperrors.InvalidArgument("You cannot follow yourself")
	}

	ctx, span := telemetry.StartSpan(ctx, "social.follow", attribute.String("target_id", targetID))
	defer span.End()

	var target *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		if _, err := users.GetByID(ctx, selfID); err != nil {
			return err
		}
		var err error
		if target, err = users.GetByID(ctx, targetID); err != nil {
			return err
		}
		return repository.NewFollowRepository(tx).Create(ctx, selfID, targetID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.Get().FollowOperationsTotal.WithLabelValues("follow").Inc()
	s.events.Publish(ctx, events.Event{
		Type:       events.UserFollowed,
		Key:        targetID,
		ActorID:    selfID,
		Attributes: map[string]string{"followee_id": targetID},
	})
	return target, nil
}

// Unfollow removes the edge if present. Removing a missing edge succeeds.
func (s *Service) Unfollow(ctx context.Context, selfID, targetID string) (string, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		if _, err := users.GetByID(ctx, selfID); err != nil {
			return err
		}
		if _, err := users.GetByID(ctx, targetID); err != nil {
			return err
		}
		var err error
		removed, err = repository.NewFollowRepository(tx).Delete(ctx, selfID, targetID)
		return err
	})
	if err != nil {
		return "", err
	}

	if removed {
		metrics.Get().FollowOperationsTotal.WithLabelValues("unfollow").Inc()
		s.events.Publish(ctx, events.Event{Type: events.UserUnfollowed, Key: targetID, ActorID: selfID})
	}
	return "Un follow successful", nil
}

// Suggestions returns people userID might follow: friends of friends
// first, then a random fill up to SuggestionCount
func (s *Service) Suggestions(ctx context.Context, userID string) ([]models.UserSummary, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !exists {
		return []models.UserSummary{}, nil
	}

	following, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	exclude := append([]string{userID}, following...)

	picked, err := s.follows.FriendsOfFriends(ctx, userID, exclude, SuggestionCount)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	for _, u := range picked {
		exclude = append(exclude, u.ID)
	}

	if missing := SuggestionCount - len(picked); missing > 0 {
		fill, err := s.follows.RandomUsers(ctx, exclude, missing)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		picked = append(picked, fill...)
	}

	out := make([]models.UserSummary, 0, len(picked))
	for i := range picked {
		out = append(out, picked[i].Summary())
	}
	return out, nil
}

// ConnectionsPage is one page of a follower or following listing
type ConnectionsPage struct {
	Connections []models.UserSummary `json:"connections"`
	TotalCount  int64                `json:"total_count"`
}

func (s *Service) Followers(ctx context.Context, userID string, offset int, query string) (*ConnectionsPage, error) {
	return s.connections(ctx, userID, repository.Followers, offset, query)
}

func (s *Service) Following(ctx context.Context, userID string, offset int, query string) (*ConnectionsPage, error) {
	return s.connections(ctx, userID, repository.Following, offset, query)
}

func (s *Service) connections(ctx context.Context, userID string, dir repository.Direction, offset int, query string) (*ConnectionsPage, error) {
	if offset < 0 {
		offset = 0
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	users, err := s.follows.List(ctx, userID, dir, query, PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	total, err := s.follows.Count(ctx, userID, dir, query)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	page := &ConnectionsPage{Connections: make([]models.UserSummary, 0, len(users)), TotalCount: total}
	for i := range users {
		page.Connections = append(page.Connections, users[i].Summary())
	}
	return page, nil
}

// ProfileView is a user's public profile as seen by a viewer
type ProfileView struct {
	User           *models.User  `json:"user"`
	FollowersCount int64         `json:"followers_count"`
	FollowingCount int64         `json:"following_count"`
	IsFollowing    bool          `json:"is_following"`
	Posts          []models.Post `json:"posts"`
}

func (s *Service) Profile(ctx context.Context, viewerID, profileID string) (*ProfileView, error) {
	user, err := s.users.GetByID(ctx, profileID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("Profile")
	}
	if err != nil {
		return nil, err
	}

	view := &ProfileView{User: user}
	if view.FollowersCount, err = s.follows.Count(ctx, profileID, repository.Followers, ""); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if view.FollowingCount, err = s.follows.Count(ctx, profileID, repository.Following, ""); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if viewerID != "" && viewerID != profileID {
		if view.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, profileID); err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
	}

	err = s.db.WithContext(ctx).
		Preload("Author").
		Preload("Hashtags", models.HashtagsInOrder).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.Author").
		Where("author_id = ?", profileID).
		Order("created_at DESC").
		Find(&view.Posts).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return view, nil
}

// UploadProfilePicture stores a new picture and replaces the user's
// current one. The old object is deleted best-effort.
func (s *Service) UploadProfilePicture(ctx context.Context, userID, filename string, body io.Reader, size int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previousKey := user.ProfilePictureKey

	res, err := s.images.Upload(ctx, body, size, userID, filename)
	if err != nil {
		return nil, apperrors.UpstreamFailure("storage", err)
	}

	if err := s.users.SetProfilePicture(ctx, userID, res.URL, res.Key); err != nil {
		if delErr := s.images.Delete(ctx, res.Key); delErr != nil {
			logger.WarnWithErr("Failed to remove orphaned profile picture", delErr, zap.String("key", res.Key))
		}
		return nil, err
	}
	user.ProfilePicture, user.ProfilePictureKey = res.URL, res.Key

	if previousKey != "" && previousKey != res.Key {
		if err := s.images.Delete(ctx, previousKey); err != nil {
			metrics.Get().ImageCleanupFailures.WithLabelValues("profile_picture").Inc()
			logger.WarnWithErr("Failed to delete previous profile picture", err, logger.WithUserID(userID), zap.String("key", previousKey))
		}
	}
	return user, nil
}
