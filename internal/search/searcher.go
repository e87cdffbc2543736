package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/repository"
	"gorm.io/gorm"
)

// Searcher is one search backend. Matching is a case-insensitive substring
// on the fields each kind names.
type Searcher interface {
	Name() string
	Users(ctx context.Context, value string, offset, limit int) ([]models.User, error)
	Blogs(ctx context.Context, value string, offset, limit int) ([]models.Post, error)
	Images(ctx context.Context, value string, offset, limit int) ([]models.Post, error)
}

// DBSearcher answers searches with LIKE queries
type DBSearcher struct {
	db *gorm.DB
}

func NewDBSearcher(db *gorm.DB) *DBSearcher {
	return &DBSearcher{db: db}
}

func (s *DBSearcher) Name() string { return "database" }

func (s *DBSearcher) Users(ctx context.Context, value string, offset, limit int) ([]models.User, error) {
	users, err := repository.NewUserRepository(s.db).Search(ctx, value, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return users, nil
}

func (s *DBSearcher) taggedWith(pattern string) *gorm.DB {
	return s.db.Model(&models.PostHashtag{}).
		Select("post_id").
		Where("LOWER(tag) LIKE ? ESCAPE '\\'", pattern)
}

func (s *DBSearcher) Blogs(ctx context.Context, value string, offset, limit int) ([]models.Post, error) {
	pattern := repository.ContainsPattern(value)
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Hashtags", models.HashtagsInOrder).
		Preload("Likes").
		Where("LOWER(title) LIKE ? ESCAPE '\\' OR id IN (?)", pattern, s.taggedWith(pattern)).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return posts, nil
}

func (s *DBSearcher) Images(ctx context.Context, value string, offset, limit int) ([]models.Post, error) {
	pattern := repository.ContainsPattern(value)
	var posts []models.Post
	err := withComments(s.db.WithContext(ctx)).
		Where("id IN (?)", s.taggedWith(pattern)).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return posts, nil
}

func withComments(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Hashtags", models.HashtagsInOrder).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.Author")
}

// ElasticSearcher finds ids with wildcard queries and loads the rows from
// the database in hit order
type ElasticSearcher struct {
	client *Client
	db     *gorm.DB
}

func NewElasticSearcher(client *Client, db *gorm.DB) *ElasticSearcher {
	return &ElasticSearcher{client: client, db: db}
}

func (s *ElasticSearcher) Name() string { return "elasticsearch" }

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func containsWildcard(field, value string) map[string]interface{} {
	v := "*" + wildcardEscaper.Replace(strings.ToLower(strings.TrimSpace(value))) + "*"
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{"value": v},
		},
	}
}

func anyOf(clauses ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": 1,
		},
	}
}

func (s *ElasticSearcher) Users(ctx context.Context, value string, offset, limit int) ([]models.User, error) {
	ids, err := s.client.SearchIDs(ctx, IndexUsers,
		anyOf(containsWildcard("username", value), containsWildcard("email", value)), offset, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return inHitOrder(ids, users, func(u models.User) string { return u.ID }), nil
}

func (s *ElasticSearcher) Blogs(ctx context.Context, value string, offset, limit int) ([]models.Post, error) {
	ids, err := s.client.SearchIDs(ctx, IndexPosts,
		anyOf(containsWildcard("title", value), containsWildcard("hash_tags", value)), offset, limit)
	if err != nil {
		return nil, err
	}
	return s.loadPosts(ctx, ids, s.db.WithContext(ctx).Preload("Author").Preload("Hashtags", models.HashtagsInOrder).Preload("Likes"))
}

func (s *ElasticSearcher) Images(ctx context.Context, value string, offset, limit int) ([]models.Post, error) {
	ids, err := s.client.SearchIDs(ctx, IndexPosts, containsWildcard("hash_tags", value), offset, limit)
	if err != nil {
		return nil, err
	}
	return s.loadPosts(ctx, ids, withComments(s.db.WithContext(ctx)))
}

func (s *ElasticSearcher) loadPosts(ctx context.Context, ids []string, q *gorm.DB) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := q.Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return inHitOrder(ids, posts, func(p models.Post) string { return p.ID }), nil
}

// inHitOrder reorders rows to match ids, dropping ids the database no
// longer has
func inHitOrder[T any](ids []string, rows []T, key func(T) string) []T {
	byID := make(map[string]T, len(rows))
	for _, r := range rows {
		byID[key(r)] = r
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
