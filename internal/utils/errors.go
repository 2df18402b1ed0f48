package utils

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Messaging errors
	ErrAccessDenied = "ACCESS_DENIED" // Caller is not a participant of the conversation
	ErrValidation   = "VALIDATION_ERROR"
	ErrTransientIO  = "TRANSIENT_IO" // Network/storage failure; retryable by resubmission
	ErrNotFound     = "NOT_FOUND"

	// Notification errors. Never propagated to the sender-facing flow.
	ErrNotificationDispatch = "NOTIFICATION_DISPATCH"

	// Authentication/Authorization errors
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrInvalidToken       = "INVALID_TOKEN"
	ErrInvalidCredentials = "INVALID_CREDENTIALS"
	ErrUserNotFound       = "USER_NOT_FOUND"
	ErrUserAlreadyExists  = "USER_ALREADY_EXISTS"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	ErrDatabase = "DATABASE_ERROR"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewAccessDeniedError(userID, conversationID string) *AppError {
	return &AppError{
		Code:    ErrAccessDenied,
		Message: fmt.Sprintf("user %s is not a participant of conversation %s", userID, conversationID),
	}
}

func NewValidationError(reason string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "validation failed: " + reason,
	}
}

func NewTransientIOError(op string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrTransientIO,
		Message: "transient failure during " + op,
		Origin:  originalErr,
	}
}

func NewUserNotFoundError(userID string) *AppError {
	return &AppError{
		Code:    ErrUserNotFound,
		Message: "user not found: " + userID,
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "actor communication timeout: " + actorName,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrUserNotFound:
		return 404 // http.StatusNotFound
	case ErrValidation, ErrInvalidCredentials:
		return 400 // http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return 401 // http.StatusUnauthorized
	case ErrAccessDenied:
		return 403 // http.StatusForbidden
	case ErrUserAlreadyExists:
		return 409 // http.StatusConflict
	case ErrDatabase, ErrTransientIO, ErrActorTimeout, ErrNotificationDispatch:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}
