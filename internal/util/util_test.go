package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
)

func TestRespondWithErrorMapsCodes(t *testing.T) {
	logger.InitializeNop()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.NotFound("Post"), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.AccountBlocked(""), http.StatusForbidden, "ACCOUNT_BLOCKED"},
		{apperrors.InvalidField("content", "Comment cannot be empty"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{fmt.Errorf("database error: %w", assert.AnError), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondWithError(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
		assert.NotContains(t, body.Message, "database error")
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	logger.InitializeNop()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(UserIDKey, "u1")
	id, ok := GetUserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestParseOffset(t *testing.T) {
	assert.Equal(t, 0, ParseOffset(""))
	assert.Equal(t, 0, ParseOffset("-5"))
	assert.Equal(t, 0, ParseOffset("abc"))
	assert.Equal(t, 15, ParseOffset(" 15 "))
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("cat.PNG"))
	assert.Error(t, ValidateFilename(""))
	assert.Error(t, ValidateFilename("../etc/passwd.png"))
	assert.Error(t, ValidateFilename("notes.txt"))
}
