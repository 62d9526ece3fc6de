package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid token", ErrInvalidToken("bad signature", nil), http.StatusUnauthorized},
		{"user not found", ErrUserNotFound("alice@x.com"), http.StatusUnauthorized},
		{"refresh token expired", ErrRefreshTokenExpired(), http.StatusUnauthorized},
		{"missing cookie", ErrMissingCookie("refresh_token"), http.StatusUnauthorized},
		{"login state", ErrInvalidLoginState("state mismatch"), http.StatusBadRequest},
		{"rate limit", ErrRateLimitExceeded(5, 0), http.StatusTooManyRequests},
		{"store unavailable", ErrStoreUnavailable("find user", errors.New("dial tcp: timeout")), http.StatusServiceUnavailable},
		{"identity assertion", ErrIdentityAssertionIncomplete("email"), http.StatusInternalServerError},
		{"external service", ErrExternalServiceError("google", nil), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("refresh failed: %w", ErrRefreshTokenNotFound()), http.StatusUnauthorized},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("rotate: %w", ErrStoreUnavailable("update refresh token", cause))

	assert.True(t, HasCode(err, ErrCodeStoreUnavailable))
	assert.False(t, HasCode(err, ErrCodeInvalidToken))
	assert.False(t, HasCode(nil, ErrCodeStoreUnavailable))
	assert.ErrorIs(t, err, cause)
}

func TestNewErrorResponse_HidesPlainErrors(t *testing.T) {
	resp := NewErrorResponse(errors.New("pq: password authentication failed"), "/api/auth/refresh", "cid")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeInternalServerError, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
	assert.Equal(t, "/api/auth/refresh", resp.Path)
}

func TestNewErrorResponse_OmitsServerSideDetails(t *testing.T) {
	err := ErrStoreUnavailable("find refresh token (sqlstate 57P01)", errors.New("terminating connection"))
	resp := NewErrorResponse(err, "/api/auth/refresh", "cid")

	assert.Equal(t, ErrCodeStoreUnavailable, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
	assert.Contains(t, err.Error(), "sqlstate 57P01")

	clientErr := NewErrorResponse(ErrMissingCookie("refresh_token"), "/api/auth/refresh", "cid")
	assert.Equal(t, "Cookie: refresh_token", clientErr.Error.Details)
}
