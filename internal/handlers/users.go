package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/social"
	"github.com/zfogg/plaza/internal/util"
)

// Suggestions handles GET /users/suggestions
func (h *Handlers) Suggestions(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	users, err := h.social.Suggestions(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Profile handles GET /users/:id/profile
func (h *Handlers) Profile(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	view, err := h.social.Profile(c.Request.Context(), viewerID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Follow handles POST /users/:id/follow
func (h *Handlers) Follow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	target, err := h.social.Follow(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Follow successful", "user": target.Summary()})
}

// Unfollow handles DELETE /users/:id/follow
func (h *Handlers) Unfollow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	msg, err := h.social.Unfollow(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondMessage(c, http.StatusOK, msg)
}

// Followers handles GET /users/:id/followers?offset&q
func (h *Handlers) Followers(c *gin.Context) {
	page, err := h.social.Followers(c.Request.Context(), c.Param("id"), util.ParseOffset(c.Query("offset")), c.Query("q"))
	h.respondConnections(c, page, err)
}

// Following handles GET /users/:id/following?offset&q
func (h *Handlers) Following(c *gin.Context) {
	page, err := h.social.Following(c.Request.Context(), c.Param("id"), util.ParseOffset(c.Query("offset")), c.Query("q"))
	h.respondConnections(c, page, err)
}

func (h *Handlers) respondConnections(c *gin.Context, page *social.ConnectionsPage, err error) {
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UploadProfilePicture handles multipart POST /users/me/picture
func (h *Handlers) UploadProfilePicture(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	upload, closeFn, err := formImage(c, "image")
	defer closeFn()
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	if upload == nil {
		util.RespondWithAPIError(c, apperrors.InvalidField("image", "No image provided in 'image' field"))
		return
	}

	user, err := h.social.UploadProfilePicture(c.Request.Context(), userID, upload.Filename, upload.Body, upload.Size)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// StoryArchive handles GET /users/:id/stories/archive. Only the owner may
// read their archive.
func (h *Handlers) StoryArchive(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if c.Param("id") != userID {
		util.RespondWithAPIError(c, apperrors.Unauthorized("You can only view your own story archive"))
		return
	}
	days, err := h.stories.Archive(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}
