package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/util"
)

// Feed handles GET /feed/:heading?offset for Recent, Friends and Popular
func (h *Handlers) Feed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	items, err := h.feed.Fetch(c.Request.Context(), c.Param("heading"), util.ParseOffset(c.Query("offset")), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// Search handles GET /search?q&type&offset
func (h *Handlers) Search(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res, err := h.search.Search(c.Request.Context(), userID, c.Query("q"), c.Query("type"), util.ParseOffset(c.Query("offset")))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": res.Kind, "results": res.Items()})
}
