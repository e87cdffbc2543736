package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/stories"
	"github.com/zfogg/plaza/internal/util"
)

// CreateStory handles POST /stories as JSON with image_url, or multipart
// with an "image" file
func (h *Handlers) CreateStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var in stories.CreateStoryInput
	if isMultipart(c) {
		in.ImageURL = c.PostForm("image_url")
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

	story, err := h.stories.Create(c.Request.Context(), userID, in)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// FreshStories handles GET /stories
func (h *Handlers) FreshStories(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	groups, err := h.stories.FreshStories(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": groups})
}

// ViewStory handles POST /stories/:id/view?author=<userId>
func (h *Handlers) ViewStory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	author := c.Query("author")
	if author == "" {
		util.RespondWithAPIError(c, apperrors.InvalidField("author", "author is required"))
		return
	}
	story, err := h.stories.ViewStory(c.Request.Context(), userID, c.Param("id"), author)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}
