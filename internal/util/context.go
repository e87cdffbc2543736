package util

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/models"
)

// Context keys set by the auth middleware
const (
	UserIDKey = "user_id"
	UserKey   = "user"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(UserKey)
	if !exists {
		RespondUnauthenticated(c)
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		RespondUnauthenticated(c, "invalid user data in context")
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// If the user is not authenticated, it responds with 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		RespondUnauthenticated(c)
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		RespondUnauthenticated(c, "invalid user ID in context")
		return "", false
	}
	return userIDStr, true
}
