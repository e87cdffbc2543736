package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/zfogg/plaza/internal/auth"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
)

type fakeAuthenticator struct {
	users map[string]*models.User
}

func (f *fakeAuthenticator) ValidateToken(token string) (*auth.Claims, error) {
	if _, ok := f.users[token]; !ok {
		return nil, apperrors.Unauthenticated("invalid token")
	}
	return &auth.Claims{UserID: token}, nil
}

func (f *fakeAuthenticator) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok || u == nil {
		return nil, apperrors.NotFound("User")
	}
	return u, nil
}

func authRouter(a Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireAuth(a))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	logger.InitializeNop()
	a := &fakeAuthenticator{users: map[string]*models.User{
		"alice":   {ID: "alice"},
		"blocked": {ID: "blocked", IsBlocked: true},
		"ghost":   nil,
	}}
	router := authRouter(a)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer alice", http.StatusOK, "alice"},
		{"scheme is case-insensitive", "bearer alice", http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"wrong scheme", "Basic alice", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"bad token", "Bearer mallory", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"blocked user", "Bearer blocked", http.StatusForbidden, "ACCOUNT_BLOCKED"},
		{"deleted user", "Bearer ghost", http.StatusUnauthorized, "UNAUTHENTICATED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	logger.InitializeNop()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}
