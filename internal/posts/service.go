// Package posts implements the post lifecycle: creation, edits, deletion,
// likes and comments.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/search"
	"github.com/zfogg/plaza/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	images  storage.ImageStore
	indexer search.Indexer
	events  events.Publisher
}

func NewService(db *gorm.DB, images storage.ImageStore, indexer search.Indexer, publisher events.Publisher) *Service {
	if images == nil {
		images = storage.Disabled{}
	}
	if indexer == nil {
		indexer = search.NoopIndexer{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db: db, images: images, indexer: indexer, events: publisher}
}

type CreatePostInput struct {
	Content  string          `json:"content" form:"content"`
	Title    string          `json:"title" form:"title"`
	Body     string          `json:"body" form:"body"`
	HashTag  string          `json:"hash_tag" form:"hash_tag"`
	ImageURL string          `json:"image_url" form:"image_url"`
	Image    *storage.Upload `json:"-" form:"-"`
}

// UpdatePostInput carries the fields to change. Empty fields are left as they are.
type UpdatePostInput struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	HashTag string `json:"hash_tag"`
}

// DeleteResult reports the outcome of a delete. CleanupErr is set when the
// post was removed but its image could not be.
type DeleteResult struct {
	PostID     string `json:"post_id"`
	CleanupErr error  `json:"-"`
}

func (s *Service) Create(ctx context.Context, authorID string, in CreatePostInput) (*models.Post, error) {
	var author models.User
	if err := s.db.WithContext(ctx).Select("id").First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	post := &models.Post{
		AuthorID:     authorID,
		Content:      in.Content,
		Title:        in.Title,
		Body:         in.Body,
		HashTagInput: in.HashTag,
		ImageURL:     in.ImageURL,
	}
	if strings.TrimSpace(post.Content+post.Title+post.Body+post.ImageURL) == "" && in.Image == nil {
		return nil, apperrors.InvalidArgument("Post is empty")
	}

	if in.Image != nil {
		res, err := s.images.Upload(ctx, in.Image.Body, in.Image.Size, authorID, in.Image.Filename)
		if err != nil {
			return nil, apperrors.UpstreamFailure("storage", err)
		}
		post.ImageURL, post.ImageKey = res.URL, res.Key
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Hashtags", "Likes", "Comments").Create(post).Error; err != nil {
			return err
		}
		if tags := TagRows(post.ID, ExtractHashtags(in.HashTag)); len(tags) > 0 {
			return tx.Create(&tags).Error
		}
		return nil
	})
	if err != nil {
		if post.ImageKey != "" {
			if delErr := s.images.Delete(ctx, post.ImageKey); delErr != nil {
				logger.WarnWithErr("Failed to remove image of failed post", delErr, zap.String("key", post.ImageKey))
			}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	created, err := s.Get(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	metrics.Get().PostOperationsTotal.WithLabelValues("create").Inc()
	s.index(ctx, created)
	s.events.Publish(ctx, events.Event{Type: events.PostCreated, Key: created.ID, ActorID: authorID})
	return created, nil
}

// Get loads a post with its author, tags, likes and comments (newest first)
func (s *Service) Get(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Hashtags", models.HashtagsInOrder).
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.Author").
		First(&post, "id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Post")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &post, nil
}

// owned loads the bare post row and checks that userID wrote it
func (s *Service) owned(ctx context.Context, db *gorm.DB, postID, userID, action string) (*models.Post, error) {
	var post models.Post
	err := db.WithContext(ctx).First(&post, "id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Post")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if post.AuthorID != userID {
		return nil, apperrors.Unauthorized(fmt.Sprintf("You are not authorized to %s this post", action))
	}
	return &post, nil
}

func (s *Service) Update(ctx context.Context, postID, editorID string, in UpdatePostInput) (*models.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.owned(ctx, tx, postID, editorID, "edit")
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Content != "" {
			updates["content"] = in.Content
		}
		if in.Title != "" {
			updates["title"] = in.Title
		}
		if in.Body != "" {
			updates["body"] = in.Body
		}

		if tags := ExtractHashtags(in.HashTag); len(tags) > 0 {
			updates["hash_tag_input"] = in.HashTag
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostHashtag{}).Error; err != nil {
				return err
			}
			rows := TagRows(post.ID, tags)
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(post).Updates(updates).Error
	})
	if err != nil {
		var apiErr *apperrors.APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	updated, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	metrics.Get().PostOperationsTotal.WithLabelValues("update").Inc()
	s.index(ctx, updated)
	return updated, nil
}

// Delete removes the post with its likes, comments and tags. The image and
// search document are removed after the transaction commits; a failed image
// delete is reported in the result, not as an error.
func (s *Service) Delete(ctx context.Context, postID, requesterID string) (*DeleteResult, error) {
	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = s.owned(ctx, tx, postID, requesterID, "delete"); err != nil {
			return err
		}
		for _, child := range []interface{}{&models.PostLike{}, &models.Comment{}, &models.PostHashtag{}} {
			if err := tx.Where("post_id = ?", postID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
	if err != nil {
		var apiErr *apperrors.APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	result := &DeleteResult{PostID: postID}
	if post.ImageKey != "" {
		if err := s.images.Delete(ctx, post.ImageKey); err != nil {
			result.CleanupErr = err
			metrics.Get().ImageCleanupFailures.WithLabelValues("post").Inc()
			logger.WarnWithErr("Failed to delete post image", err, logger.WithPostID(postID), zap.String("key", post.ImageKey))
		}
	}
	if err := s.indexer.DeletePost(ctx, postID); err != nil {
		metrics.Get().SearchIndexErrors.WithLabelValues("post").Inc()
		logger.WarnWithErr("Failed to remove post from search index", err, logger.WithPostID(postID))
	}

	metrics.Get().PostOperationsTotal.WithLabelValues("delete").Inc()
	s.events.Publish(ctx, events.Event{Type: events.PostDeleted, Key: postID, ActorID: requesterID})
	return result, nil
}

func (s *Service) exists(ctx context.Context, postID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count == 0 {
		return apperrors.NotFound("Post")
	}
	return nil
}

func (s *Service) Like(ctx context.Context, postID, userID string) error {
	if err := s.exists(ctx, postID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Create(&models.PostLike{PostID: postID, UserID: userID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict("User has already liked this post")
	}
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	metrics.Get().PostOperationsTotal.WithLabelValues("like").Inc()
	s.events.Publish(ctx, events.Event{Type: events.PostLiked, Key: postID, ActorID: userID})
	return nil
}

// Unlike removes userID's like if there is one
func (s *Service) Unlike(ctx context.Context, postID, userID string) error {
	if err := s.exists(ctx, postID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{}).Error
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, postID, authorID, content string) (*models.Post, error) {
	if err := s.exists(ctx, postID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidField("content", "Comment cannot be empty")
	}

	comment := &models.Comment{PostID: postID, AuthorID: authorID, Content: content}
	if err := s.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	metrics.Get().PostOperationsTotal.WithLabelValues("comment").Inc()
	s.events.Publish(ctx, events.Event{
		Type:       events.CommentAdded,
		Key:        postID,
		ActorID:    authorID,
		Attributes: map[string]string{"comment_id": comment.ID},
	})
	return s.Get(ctx, postID)
}

// DeleteComment removes a comment. Only its author or the post's author may do so.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID, requesterID string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Select("id", "author_id").First(&post, "id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Post")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var comment models.Comment
	err = s.db.WithContext(ctx).First(&comment, "id = ? AND post_id = ?", commentID, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Comment")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if comment.AuthorID != requesterID && post.AuthorID != requesterID {
		return nil, apperrors.Unauthorized("You are not authorized to delete this comment")
	}

	if err := s.db.WithContext(ctx).Delete(&comment).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return s.Get(ctx, postID)
}

func (s *Service) index(ctx context.Context, post *models.Post) {
	if err := s.indexer.IndexPost(ctx, post); err != nil {
		metrics.Get().SearchIndexErrors.WithLabelValues("post").Inc()
		logger.WarnWithErr("Failed to index post", err, logger.WithPostID(post.ID))
	}
}
