package search

import (
	"context"

	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
)

// Indexer keeps the search index in step with the database. Callers treat
// index writes as best-effort.
type Indexer interface {
	IndexUser(ctx context.Context, user *models.User) error
	IndexPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID string) error
}

// NoopIndexer is used when Elasticsearch is not configured
type NoopIndexer struct{}

func (NoopIndexer) IndexUser(ctx context.Context, user *models.User) error { return nil }
func (NoopIndexer) IndexPost(ctx context.Context, post *models.Post) error { return nil }
func (NoopIndexer) DeletePost(ctx context.Context, postID string) error    { return nil }

// ElasticIndexer writes documents to the plaza indices
type ElasticIndexer struct {
	client *Client
}

func NewElasticIndexer(client *Client) *ElasticIndexer {
	return &ElasticIndexer{client: client}
}

func (i *ElasticIndexer) IndexUser(ctx context.Context, user *models.User) error {
	return countFailure("user", i.client.Put(ctx, IndexUsers, user.ID, NewUserDocument(user)))
}

// IndexPost expects Hashtags to be loaded
func (i *ElasticIndexer) IndexPost(ctx context.Context, post *models.Post) error {
	return countFailure("post", i.client.Put(ctx, IndexPosts, post.ID, NewPostDocument(post)))
}

func (i *ElasticIndexer) DeletePost(ctx context.Context, postID string) error {
	return countFailure("post", i.client.Remove(ctx, IndexPosts, postID))
}

func countFailure(kind string, err error) error {
	if err != nil {
		metrics.Get().SearchIndexErrors.WithLabelValues(kind).Inc()
	}
	return err
}

var (
	_ Indexer = NoopIndexer{}
	_ Indexer = (*ElasticIndexer)(nil)
)
