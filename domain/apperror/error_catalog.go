package apperror

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Authentication Errors (1xxx)
	ErrCodeAuthenticationFailed ErrorCode = "AUTH_1001"
	ErrCodeUserNotFound         ErrorCode = "AUTH_1002"
	ErrCodeRefreshTokenNotFound ErrorCode = "AUTH_1003"
	ErrCodeRotationConflict     ErrorCode = "AUTH_1004"

	// Validation Errors (2xxx)
	ErrCodeMissingCredentials ErrorCode = "VALID_2001"
	ErrCodeInvalidRequest     ErrorCode = "VALID_2002"

	// Database Errors (5xxx)
	ErrCodeDatabaseError       ErrorCode = "DB_5001"
	ErrCodeTokenCreationFailed ErrorCode = "DB_5002"

	// Server Errors (6xxx)
	ErrCodeConfigurationError ErrorCode = "SERVER_6001"
)

// ErrAuthenticationFailed is the single error every fallible path of the
// token flows collapses to. Callers must not be able to tell a wrong
// password from an unknown account, a consumed refresh token, or a store
// outage; the distinction lives only in internal logs.
var ErrAuthenticationFailed = errors.New("authentication failed")

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}
