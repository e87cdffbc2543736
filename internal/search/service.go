// Package search finds users and posts by substring, backed by the
// database or Elasticsearch.
package search

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PageSize is the number of results per search page
const PageSize = 10

type Kind string

const (
	Users  Kind = "users"
	Blogs  Kind = "blogs"
	Images Kind = "images"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Users, Blogs, Images:
		return k, nil
	}
	return "", apperrors.InvalidArgument(fmt.Sprintf("Unsupported item: %s", s))
}

// Result holds users for a users search and posts otherwise
type Result struct {
	Kind    Kind          `json:"type"`
	Backend string        `json:"-"`
	Users   []models.User `json:"users,omitempty"`
	Posts   []models.Post `json:"posts,omitempty"`
}

// Items returns whichever list the search kind fills
func (r *Result) Items() interface{} {
	if r.Kind == Users {
		if r.Users == nil {
			return []models.User{}
		}
		return r.Users
	}
	if r.Posts == nil {
		return []models.Post{}
	}
	return r.Posts
}

type Service struct {
	primary  Searcher
	fallback *DBSearcher
}

// NewService searches primary when given, falling back to the database
// when it fails
func NewService(db *gorm.DB, primary Searcher) *Service {
	fallback := NewDBSearcher(db)
	if primary == nil {
		primary = fallback
	}
	return &Service{primary: primary, fallback: fallback}
}

func (s *Service) Search(ctx context.Context, viewerID, value, kind string, offset int) (*Result, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query",
		attribute.String("search.type", string(k)),
		attribute.String("search.viewer_id", viewerID),
		attribute.Int("search.offset", offset),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.Get().SearchQueryDuration.WithLabelValues(string(k)).Observe(time.Since(start).Seconds())
	}()

	res, err := s.run(ctx, s.primary, k, value, offset)
	if err != nil && s.primary != Searcher(s.fallback) {
		logger.WarnWithErr("Search backend failed, falling back to database", err,
			zap.String("backend", s.primary.Name()),
			zap.String("type", string(k)),
		)
		metrics.Get().SearchFallbacksTotal.Inc()
		res, err = s.run(ctx, s.fallback, k, value, offset)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.Get().SearchQueriesTotal.WithLabelValues(string(k), res.Backend).Inc()
	return res, nil
}

func (s *Service) run(ctx context.Context, b Searcher, k Kind, value string, offset int) (*Result, error) {
	res := &Result{Kind: k, Backend: b.Name()}
	var err error
	switch k {
	case Users:
		res.Users, err = b.Users(ctx, value, offset, PageSize)
	case Blogs:
		res.Posts, err = b.Blogs(ctx, value, offset, PageSize)
	case Images:
		res.Posts, err = b.Images(ctx, value, offset, PageSize)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
