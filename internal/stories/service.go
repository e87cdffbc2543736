// Package stories serves short-lived image stories and records who viewed them.
package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	images storage.ImageStore
	events events.Publisher
	now    func() time.Time
}

func NewService(db *gorm.DB, images storage.ImageStore, publisher events.Publisher) *Service {
	if images == nil {
		images = storage.Disabled{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db: db, images: images, events: publisher, now: time.Now}
}

// WithClock replaces the service's time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UserStories groups one user's fresh stories, newest first
type UserStories struct {
	User    models.UserSummary `json:"user"`
	Stories []models.Story     `json:"stories"`
}

// StoryDay groups a user's stories created on one UTC date
type StoryDay struct {
	Date    string         `json:"date"`
	Stories []models.Story `json:"stories"`
}

type CreateStoryInput struct {
	ImageURL string          `json:"image_url" form:"image_url"`
	Image    *storage.Upload `json:"-" form:"-"`
}

func (s *Service) requireUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateStoryInput) (*models.Story, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	story := &models.Story{UserID: userID, ImageURL: strings.TrimSpace(in.ImageURL), CreatedAt: s.now().UTC()}
	if in.Image != nil {
		res, err := s.images.Upload(ctx, in.Image.Body, in.Image.Size, userID, in.Image.Filename)
		if err != nil {
			return nil, apperrors.UpstreamFailure("storage", err)
		}
		story.ImageURL, story.ImageKey = res.URL, res.Key
	}
	if story.ImageURL == "" {
		return nil, apperrors.InvalidField("image_url", "Story image is required")
	}

	if err := s.db.WithContext(ctx).Omit("User", "Views").Create(story).Error; err != nil {
		if story.ImageKey != "" {
			if delErr := s.images.Delete(ctx, story.ImageKey); delErr != nil {
				logger.WarnWithErr("Failed to remove image of failed story", delErr, zap.String("key", story.ImageKey))
			}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.events.Publish(ctx, events.Event{Type: events.StoryCreated, Key: story.ID, ActorID: userID})
	return story, nil
}

// FreshStories returns stories from the last 24 hours by userID, the people
// userID follows and the people following userID, grouped per author.
// Authors without fresh stories are omitted.
func (s *Service) FreshStories(ctx context.Context, userID string) ([]UserStories, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	following := s.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
	followers := s.db.Model(&models.Follow{}).Select("follower_id").Where("followee_id = ?", userID)
	cutoff := s.now().UTC().Add(-models.StoryTTL)

	var stories []models.Story
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Views", func(db *gorm.DB) *gorm.DB { return db.Order("viewed_at ASC") }).
		Preload("Views.Viewer").
		Where("user_id = ? OR user_id IN (?) OR user_id IN (?)", userID, following, followers).
		Where("created_at > ?", cutoff).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return groupByUser(stories), nil
}

// groupByUser keeps the input order: groups appear in order of each
// author's newest story
func groupByUser(stories []models.Story) []UserStories {
	index := map[string]int{}
	groups := []UserStories{}
	for _, st := range stories {
		i, ok := index[st.UserID]
		if !ok {
			i = len(groups)
			index[st.UserID] = i
			groups = append(groups, UserStories{User: st.User.Summary()})
		}
		groups[i].Stories = append(groups[i].Stories, st)
	}
	return groups
}

// ViewStory records that viewerID saw storyID, which must belong to
// authorID. Repeat views are not recorded again.
func (s *Service) ViewStory(ctx context.Context, viewerID, storyID, authorID string) (*models.Story, error) {
	if _, err := s.requireUser(ctx, authorID); err != nil {
		return nil, err
	}

	var story models.Story
	err := s.db.WithContext(ctx).First(&story, "id = ? AND user_id = ?", storyID, authorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Story")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var seen int64
	err = s.db.WithContext(ctx).Model(&models.StoryView{}).
		Where("story_id = ? AND viewer_id = ?", storyID, viewerID).
		Count(&seen).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if seen == 0 {
		view := &models.StoryView{StoryID: storyID, ViewerID: viewerID, ViewedAt: s.now().UTC()}
		res := s.db.WithContext(ctx).
			Omit("Viewer").
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "story_id"}, {Name: "viewer_id"}},
				DoNothing: true,
			}).
			Create(view)
		if res.Error != nil {
			return nil, fmt.Errorf("database error: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			metrics.Get().StoryViewsTotal.Inc()
		}
	}

	err = s.db.WithContext(ctx).
		Preload("Views", func(db *gorm.DB) *gorm.DB { return db.Order("viewed_at ASC") }).
		Preload("Views.Viewer").
		First(&story, "id = ?", storyID).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &story, nil
}

// Archive lists every story of userID grouped by UTC creation date, most
// recent date first
func (s *Service) Archive(ctx context.Context, userID string) ([]StoryDay, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	var stories []models.Story
	err := s.db.WithContext(ctx).
		Preload("Views").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	days := []StoryDay{}
	for _, st := range stories {
		date := st.CreatedAt.UTC().Format("2006-01-02")
		if n := len(days); n > 0 && days[n-1].Date == date {
			days[n-1].Stories = append(days[n-1].Stories, st)
			continue
		}
		days = append(days, StoryDay{Date: date, Stories: []models.Story{st}})
	}
	return days, nil
}
