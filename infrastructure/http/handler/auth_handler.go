package handler

import (
	"net/http"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/http/response"
	"github.com/arw/arw-api/infrastructure/service/logger"
	"github.com/arw/arw-api/infrastructure/service/metrics"
)

type AuthHandler struct {
	sessions inbound.SessionUseCase
	metrics  *metrics.Metrics
	logger   logger.Logger
}

func NewAuthHandler(sessions inbound.SessionUseCase, m *metrics.Metrics, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		metrics:  m,
		logger:   log,
	}
}

// Refresh issues a new access token cookie for a valid refresh token cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.sessions.Refresh(r.Context(), refreshTokenFrom(r))
	h.metrics.ObserveAuthEvent("refresh", outcomeLabel(err))
	if err != nil {
		response.AppError(w, r, err)
		return
	}

	response.SetCookies(w, outcome.Cookies)
	response.Success(w, http.StatusOK, "Access token refreshed", nil)
}

// Logout revokes the refresh token and clears both session cookies. It
// succeeds even when the caller holds no session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.sessions.Logout(r.Context(), refreshTokenFrom(r))
	h.metrics.ObserveAuthEvent("logout", outcomeLabel(err))
	if err != nil {
		response.AppError(w, r, err)
		return
	}

	response.SetCookies(w, outcome.Cookies)
	response.Success(w, http.StatusOK, "Log out successful", nil)
}

func refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(outbound.RefreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// outcomeLabel is "success" or the error code that ended the request.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if code := apperror.CodeOf(err); code != "" {
		return string(code)
	}
	return string(apperror.ErrCodeInternalServerError)
}
