package errors

import (
	stderrors "errors"
	"fmt"
)

// APIError is the error type returned by every service for an expected
// failure. Infrastructure errors travel as Cause.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches on code, so errors.Is(err, errors.ErrNotFound) and
// errors.Is(err, errors.NotFound("post")) both work.
func (e *APIError) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *APIError:
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// AlreadyExists is returned for a duplicate username or email
func AlreadyExists(message string) *APIError {
	return newError(ErrAlreadyExists, message)
}

// NotFound builds "<resource> not found"
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidCredentials(message string) *APIError {
	if message == "" {
		message = "Invalid credentials"
	}
	return newError(ErrInvalidCredentials, message)
}

func AccountBlocked(message string) *APIError {
	if message == "" {
		message = "Your account is blocked"
	}
	return newError(ErrAccountBlocked, message)
}

// Unauthorized is for an authenticated caller acting on something it does not own
func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// Unauthenticated is for a missing or invalid access token
func Unauthenticated(message string) *APIError {
	if message == "" {
		message = "user not authenticated"
	}
	return newError(ErrUnauthenticated, message)
}

func InvalidArgument(message string) *APIError {
	return newError(ErrInvalidArgument, message)
}

// InvalidField reports a bad value for a named input field
func InvalidField(field, message string) *APIError {
	e := newError(ErrInvalidArgument, message)
	e.Field = field
	return e
}

func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// UpstreamFailure wraps an error from mail, image hosting, or the identity provider
func UpstreamFailure(service string, cause error) *APIError {
	e := newError(ErrUpstreamFailure, fmt.Sprintf("%s request failed", service))
	e.Cause = cause
	return e
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

func InternalError(message string, cause error) *APIError {
	e := newError(ErrInternalError, message)
	e.Cause = cause
	return e
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// From converts any error into an *APIError. Errors that are not already
// API errors become INTERNAL_ERROR with the original as cause.
func From(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return InternalError("internal server error", err)
}

// CodeOf returns the failure class of err
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return From(err).Code
}
