package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/auth"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/util"
	"go.opentelemetry.io/otel/attribute"
)

// Authenticator is the part of the auth service the middleware needs
type Authenticator interface {
	ValidateToken(token string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// RequireAuth accepts "Authorization: Bearer <jwt>", loads the user and
// stores user_id and user in the context. Blocked accounts are refused even
// with a valid token.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			util.RespondUnauthenticated(c, "missing bearer token")
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}

		user, err := a.CurrentUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.ErrNotFound {
				util.RespondUnauthenticated(c, "user no longer exists")
				return
			}
			util.RespondWithError(c, err)
			return
		}
		if user.IsBlocked {
			util.RespondWithAPIError(c, apperrors.AccountBlocked(""))
			return
		}

		c.Set(util.UserIDKey, user.ID)
		c.Set(util.UserKey, user)
		annotateSpan(c, attribute.String("user.id", user.ID))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
