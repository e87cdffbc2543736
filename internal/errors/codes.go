package errors

import "net/http"

// ErrorCode identifies a failure class. Every service failure carries one so
// the transport can map it without string matching.
type ErrorCode string

const (
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrAccountBlocked     ErrorCode = "ACCOUNT_BLOCKED"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrUpstreamFailure    ErrorCode = "UPSTREAM_FAILURE"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrAlreadyExists:      http.StatusConflict,
	ErrNotFound:           http.StatusNotFound,
	ErrInvalidCredentials: http.StatusUnauthorized,
	ErrAccountBlocked:     http.StatusForbidden,
	ErrUnauthorized:       http.StatusForbidden,
	ErrUnauthenticated:    http.StatusUnauthorized,
	ErrInvalidArgument:    http.StatusBadRequest,
	ErrConflict:           http.StatusConflict,
	ErrUpstreamFailure:    http.StatusBadGateway,
	ErrRateLimited:        http.StatusTooManyRequests,
	ErrInternalError:      http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Error lets a bare code act as a sentinel for errors.Is
func (e ErrorCode) Error() string {
	return string(e)
}
