package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
// When Field is set the error is rendered as a field error instead of a detail.
type AppError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"detail"`
	Field   string `json:"-"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// FieldError creates a 400 error scoped to a single request field.
func FieldError(field, message string) *AppError {
	return NewAppError("", field, message, http.StatusBadRequest)
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("not_found", "", message, http.StatusNotFound)
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("", "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(message string) *AppError {
	return NewAppError("", "", message, http.StatusUnauthorized)
}

// NotAuthenticatedError is returned when a protected route is hit anonymously.
func NotAuthenticatedError() *AppError {
	return NewAppError("not_authenticated", "", "Authentication credentials were not provided.", http.StatusUnauthorized)
}

// TokenNotValidError is returned for malformed, expired or revoked JWTs.
func TokenNotValidError() *AppError {
	return NewAppError("token_not_valid", "", "Token is invalid or expired", http.StatusUnauthorized)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("", "", message, http.StatusInternalServerError)
}
