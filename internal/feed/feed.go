// Package feed builds the Recent, Friends and Popular post feeds.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// PageSize is the number of posts per feed page
const PageSize = 5

type Heading string

const (
	Recent  Heading = "Recent"
	Friends Heading = "Friends"
	Popular Heading = "Popular"
)

// ParseHeading accepts a heading name in any letter case
func ParseHeading(s string) (Heading, error) {
	for _, h := range []Heading{Recent, Friends, Popular} {
		if strings.EqualFold(s, string(h)) {
			return h, nil
		}
	}
	return "", apperrors.InvalidArgument(fmt.Sprintf("Unsupported heading: %s", s))
}

// FeedItem is a post with its engagement counters
type FeedItem struct {
	Post            models.Post `json:"post"`
	TotalLikes      int         `json:"total_likes"`
	TotalComments   int         `json:"total_comments"`
	EngagementScore int         `json:"engagement_score"`
}

func newItem(p models.Post) FeedItem {
	likes, comments := len(p.Likes), len(p.Comments)
	return FeedItem{
		Post:            p,
		TotalLikes:      likes,
		TotalComments:   comments,
		EngagementScore: EngagementScore(likes, comments),
	}
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Fetch returns one page of the named feed for userID
func (s *Service) Fetch(ctx context.Context, heading string, offset int, userID string) ([]FeedItem, error) {
	h, err := ParseHeading(heading)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	ctx, span := telemetry.StartSpan(ctx, "feed.fetch",
		attribute.String("feed.heading", string(h)),
		attribute.Int("feed.offset", offset),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.Get().FeedGenerationTime.WithLabelValues(strings.ToLower(string(h))).Observe(time.Since(start).Seconds())
	}()

	var items []FeedItem
	switch h {
	case Recent:
		items, err = s.recent(ctx, offset, nil)
	case Friends:
		items, err = s.friends(ctx, offset, userID)
	case Popular:
		items, err = s.popular(ctx, offset)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("feed.count", len(items)))
	return items, nil
}

// withContent preloads everything a feed item renders
func withContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Hashtags", models.HashtagsInOrder).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.Author")
}

func (s *Service) recent(ctx context.Context, offset int, scope func(*gorm.DB) *gorm.DB) ([]FeedItem, error) {
	q := withContent(s.db.WithContext(ctx))
	if scope != nil {
		q = scope(q)
	}

	var posts []models.Post
	err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(PageSize).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	items := make([]FeedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, newItem(p))
	}
	return items, nil
}

func (s *Service) friends(ctx context.Context, offset int, userID string) ([]FeedItem, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	following := s.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", userID)
	return s.recent(ctx, offset, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id IN (?)", following)
	})
}

const engagementSelect = `posts.id, posts.created_at,
	((SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) * ?
	 + (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) * ?) AS engagement_score`

type scoredID struct {
	ID              string
	EngagementScore int
}

// popular ranks in SQL so pagination is over the full ordering, then loads
// the page's posts and re-derives the counters from the loaded rows
func (s *Service) popular(ctx context.Context, offset int) ([]FeedItem, error) {
	var ranked []scoredID
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(engagementSelect, LikeWeight, CommentWeight).
		Order("engagement_score DESC").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(PageSize).
		Scan(&ranked).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if len(ranked) == 0 {
		return []FeedItem{}, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ID)
	}

	var posts []models.Post
	if err := withContent(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	items := make([]FeedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, newItem(p))
	}
	RankByEngagement(items)
	return items, nil
}
