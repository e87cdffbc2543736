// Package handlers exposes the plaza services over HTTP with gin.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/auth"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/feed"
	"github.com/zfogg/plaza/internal/posts"
	"github.com/zfogg/plaza/internal/search"
	"github.com/zfogg/plaza/internal/social"
	"github.com/zfogg/plaza/internal/storage"
	"github.com/zfogg/plaza/internal/stories"
	"github.com/zfogg/plaza/internal/util"
)

// maxImageSize caps multipart image uploads
const maxImageSize = 10 << 20

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// Services are the domain services the handlers call
type Services struct {
	Auth    *auth.Service
	Social  *social.Service
	Posts   *posts.Service
	Stories *stories.Service
	Feed    *feed.Service
	Search  *search.Service
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth    *auth.Service
	social  *social.Service
	posts   *posts.Service
	stories *stories.Service
	feed    *feed.Service
	search  *search.Service

	checks map[string]HealthCheck
}

func NewHandlers(s Services) *Handlers {
	return &Handlers{
		auth:    s.Auth,
		social:  s.Social,
		posts:   s.Posts,
		stories: s.Stories,
		feed:    s.Feed,
		search:  s.Search,
		checks:  make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency probed by GET /health
func (h *Handlers) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Health runs every registered check. Any failure answers 503.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    results,
		"timestamp": time.Now().UTC(),
		"service":   "plaza",
	})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.RespondWithAPIError(c, apperrors.InvalidArgument("Invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}

// formImage reads an optional multipart image field. The returned close
// func is never nil.
func formImage(c *gin.Context, field string) (*storage.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, apperrors.InvalidField(field, "Invalid image upload")
	}
	if header.Size > maxImageSize {
		return nil, noop, apperrors.InvalidField(field, "Image must be under 10MB")
	}
	if err := util.ValidateFilename(header.Filename); err != nil {
		return nil, noop, apperrors.InvalidField(field, err.Error())
	}

	f, err := header.Open()
	if err != nil {
		return nil, noop, apperrors.InternalError("Failed to open upload", err)
	}
	return &storage.Upload{Filename: header.Filename, Body: f, Size: header.Size}, func() { f.Close() }, nil
}
