package search

import (
	"context"
	"fmt"

	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reindexBatch = 200

// ReindexStats counts documents written by Reindex
type ReindexStats struct {
	Users  int `json:"users"`
	Posts  int `json:"posts"`
	Failed int `json:"failed"`
}

// Reindex pushes every user and post through indexer. Individual document
// failures are counted and logged; only database errors abort.
func Reindex(ctx context.Context, db *gorm.DB, indexer Indexer) (*ReindexStats, error) {
	stats := &ReindexStats{}

	err := repository.NewUserRepository(db).ListAll(ctx, reindexBatch, func(users []models.User) error {
		for i := range users {
			if err := indexer.IndexUser(ctx, &users[i]); err != nil {
				stats.Failed++
				logger.WarnWithErr("Failed to index user", err, logger.WithUserID(users[i].ID))
				continue
			}
			stats.Users++
		}
		return ctx.Err()
	})
	if err != nil {
		return stats, fmt.Errorf("reindex users: %w", err)
	}

	var posts []models.Post
	err = db.WithContext(ctx).Preload("Hashtags", models.HashtagsInOrder).FindInBatches(&posts, reindexBatch, func(tx *gorm.DB, _ int) error {
		for i := range posts {
			if err := indexer.IndexPost(ctx, &posts[i]); err != nil {
				stats.Failed++
				logger.WarnWithErr("Failed to index post", err, logger.WithPostID(posts[i].ID))
				continue
			}
			stats.Posts++
		}
		return ctx.Err()
	}).Error
	if err != nil {
		return stats, fmt.Errorf("reindex posts: %w", err)
	}

	logger.Log.Info("Search reindex complete",
		zap.Int("users", stats.Users),
		zap.Int("posts", stats.Posts),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
