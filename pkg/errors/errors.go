package errors

import "fmt"

// AppError represents a custom application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeRefreshRejected    = "REFRESH_REJECTED"
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// NewAppError creates a new application error
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common errors
var (
	ErrInvalidCredentials = NewAppError(ErrCodeInvalidCredentials, "Invalid email or password", 401)
	ErrInvalidToken       = NewAppError(ErrCodeInvalidToken, "Invalid token", 401)
	ErrTokenExpired       = NewAppError(ErrCodeTokenExpired, "Token expired", 401)
	ErrRefreshRejected    = NewAppError(ErrCodeRefreshRejected, "Session could not be renewed", 401)
	ErrMissingCredentials = NewAppError(ErrCodeMissingCredentials, "An unexpected error occurred. Please try again.", 502)
	ErrRateLimitExceeded  = NewAppError(ErrCodeRateLimitExceeded, "Too many login attempts", 429)
	ErrUnauthorized       = NewAppError(ErrCodeUnauthorized, "Unauthorized", 401)
	ErrForbidden          = NewAppError(ErrCodeForbidden, "Forbidden", 403)
)
