package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithError maps err onto its API error and writes it. Errors that
// are not API errors become a 500 without leaking the cause.
func RespondWithError(c *gin.Context, err error) {
	RespondWithAPIError(c, errors.From(err))
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		logger.WithStatus(apiErr.Status),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			fields = append(fields, logger.WithRequestID(s))
		}
	}

	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.ErrorWithErr("API error", apiErr.Cause, fields...)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Log.Warn("API error", fields...)
	}
	metrics.Get().ErrorsTotal.WithLabelValues(string(apiErr.Code), c.FullPath()).Inc()

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondUnauthenticated sends a 401 for a missing or bad token
func RespondUnauthenticated(c *gin.Context, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthenticated(msg))
}

// RespondBadRequest sends a 400 for malformed input
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InvalidArgument(message))
}

// RespondMessage writes {"message": msg}
func RespondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}
