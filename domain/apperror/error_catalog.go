package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Authentication Errors (1xxx)
	ErrCodeInvalidToken         ErrorCode = "AUTH_1001"
	ErrCodeUserNotFound         ErrorCode = "AUTH_1002"
	ErrCodeRefreshTokenNotFound ErrorCode = "AUTH_1003"
	ErrCodeRefreshTokenExpired  ErrorCode = "AUTH_1004"
	ErrCodeMissingCookie        ErrorCode = "AUTH_1005"
	ErrCodeInvalidLoginState    ErrorCode = "AUTH_1006"
	ErrCodeUnauthenticated      ErrorCode = "AUTH_1007"

	// Rate Limiting Errors (3xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_3001"

	// Database Errors (5xxx)
	ErrCodeStoreUnavailable ErrorCode = "DB_5001"

	// Server Errors (6xxx)
	ErrCodeInternalServerError         ErrorCode = "SERVER_6001"
	ErrCodeIdentityAssertionIncomplete ErrorCode = "SERVER_6003"
	ErrCodeExternalServiceError        ErrorCode = "SERVER_6004"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Authentication errors

func ErrInvalidToken(details string, cause error) *AppError {
	return NewAppError(ErrCodeInvalidToken, "Invalid token", details, cause)
}

func ErrUserNotFound(subject string) *AppError {
	return NewAppError(ErrCodeUserNotFound, "User not found", fmt.Sprintf("Subject: %s", subject), nil)
}

func ErrRefreshTokenNotFound() *AppError {
	return NewAppError(ErrCodeRefreshTokenNotFound, "Refresh token is not in database", "", nil)
}

func ErrRefreshTokenExpired() *AppError {
	return NewAppError(ErrCodeRefreshTokenExpired, "Refresh token was expired. Please make a new sign-in request", "", nil)
}

func ErrMissingCookie(name string) *AppError {
	return NewAppError(ErrCodeMissingCookie, "Required cookie is missing", fmt.Sprintf("Cookie: %s", name), nil)
}

func ErrInvalidLoginState(details string) *AppError {
	return NewAppError(ErrCodeInvalidLoginState, "Invalid login state", details, nil)
}

func ErrUnauthenticated() *AppError {
	return NewAppError(ErrCodeUnauthenticated, "Authentication required", "", nil)
}

// Rate limiting errors

func ErrRateLimitExceeded(attempts int, window time.Duration) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", fmt.Sprintf("Attempts: %d, Window: %s", attempts, window), nil)
}

// Database errors

func ErrStoreUnavailable(operation string, cause error) *AppError {
	return NewAppError(ErrCodeStoreUnavailable, "Persistent store unavailable", fmt.Sprintf("Operation: %s", operation), cause)
}

// Server errors

func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

func ErrIdentityAssertionIncomplete(field string) *AppError {
	return NewAppError(ErrCodeIdentityAssertionIncomplete, "Identity assertion is incomplete", fmt.Sprintf("Attribute: %s", field), nil)
}

func ErrExternalServiceError(service string, cause error) *AppError {
	return NewAppError(ErrCodeExternalServiceError, "External service error", fmt.Sprintf("Service: %s", service), cause)
}

// CodeOf returns the code of the first AppError in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status code returned to clients.
func HTTPStatus(err error) int {
	code := CodeOf(err)
	switch {
	case code == ErrCodeInvalidLoginState:
		return http.StatusBadRequest
	case strings.HasPrefix(string(code), "AUTH_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(string(code), "RATE_"):
		return http.StatusTooManyRequests
	case strings.HasPrefix(string(code), "DB_"):
		return http.StatusServiceUnavailable
	case code == ErrCodeExternalServiceError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body written for failed API requests
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// NewErrorResponse creates a new error response. Errors without an AppError in
// their chain are reported as internal errors, and 5xx errors are sent without
// details, so causes never leak to clients.
func NewErrorResponse(err error, path, traceID string) *ErrorResponse {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = ErrInternalServerError("", nil)
	}
	if HTTPStatus(appErr) >= http.StatusInternalServerError && appErr.Details != "" {
		// server-side details (operations, sqlstates) stay in the logs
		appErr = NewAppError(appErr.Code, appErr.Message, "", nil)
	}
	return &ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC(),
		Path:      path,
		TraceID:   traceID,
	}
}
