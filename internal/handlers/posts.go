package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/posts"
	"github.com/zfogg/plaza/internal/util"
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// CreatePost handles POST /posts as JSON, or multipart with an "image" file
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var in posts.CreatePostInput
	if isMultipart(c) {
		if err := c.ShouldBind(&in); err != nil {
			util.RespondWithAPIError(c, apperrors.InvalidArgument("Invalid form").WithDetails(err.Error()))
			return
		}
		upload, closeFn, err := formImage(c, "image")
		defer closeFn()
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		in.Image = upload
	} else if !bindJSON(c, &in) {
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, in)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost handles GET /posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost handles PUT /posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var in posts.UpdatePostInput
	if !bindJSON(c, &in) {
		return
	}
	post, err := h.posts.Update(c.Request.Context(), c.Param("id"), userID, in)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost handles DELETE /posts/:id. A failed image cleanup is reported
// in the body but the delete still succeeds.
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res, err := h.posts.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	body := gin.H{"message": "Post deleted successfully", "post_id": res.PostID}
	if res.CleanupErr != nil {
		logger.WarnWithErr("Post deleted with image cleanup failure", res.CleanupErr, logger.WithPostID(res.PostID))
		body["warning"] = "image cleanup failed"
	}
	c.JSON(http.StatusOK, body)
}

// LikePost handles POST /posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.posts.Like(c.Request.Context(), c.Param("id"), userID); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondMessage(c, http.StatusOK, "Post liked")
}

// UnlikePost handles DELETE /posts/:id/like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.posts.Unlike(c.Request.Context(), c.Param("id"), userID); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondMessage(c, http.StatusOK, "Post unliked")
}

type commentRequest struct {
	Content string `json:"content"`
}

// AddComment handles POST /posts/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.AddComment(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DeleteComment handles DELETE /posts/:id/comments/:commentId
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	post, err := h.posts.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
