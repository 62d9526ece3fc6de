package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/http/response"
	"github.com/arw/arw-api/infrastructure/service/logger"
	"github.com/arw/arw-api/infrastructure/service/metrics"
)

const (
	StateCookieName = "oauth2_state"
	StateCookiePath = "/login/oauth2"
	stateTTL        = 5 * time.Minute
)

// StateCookies builds the short-lived cookie that binds a callback to the
// browser that started the login.
type StateCookies interface {
	BuildStateCookie(name, value, path string, maxAge time.Duration) *http.Cookie
	ClearStateCookie(name, path string) *http.Cookie
}

type OAuthHandler struct {
	provider outbound.IdentityProvider
	success  inbound.LoginSuccessHandler
	cookies  StateCookies
	metrics  *metrics.Metrics
	logger   logger.Logger
}

func NewOAuthHandler(
	provider outbound.IdentityProvider,
	success inbound.LoginSuccessHandler,
	cookies StateCookies,
	m *metrics.Metrics,
	log logger.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		success:  success,
		cookies:  cookies,
		metrics:  m,
		logger:   log,
	}
}

// Initiate redirects the browser to the provider's consent page.
func (h *OAuthHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		response.AppError(w, r, apperror.ErrInternalServerError("generate login state", err))
		return
	}

	http.SetCookie(w, h.cookies.BuildStateCookie(StateCookieName, state, StateCookiePath, stateTTL))
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the authorization-code flow and starts a session.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	http.SetCookie(w, h.cookies.ClearStateCookie(StateCookieName, StateCookiePath))

	outcome, err := h.complete(r)
	logger.LogPerformance(ctx, h.logger, "oauth_callback", time.Since(start), map[string]interface{}{
		"provider": h.provider.Name(),
	})
	h.metrics.ObserveAuthEvent("login", outcomeLabel(err))
	if err != nil {
		logger.LogAuthEvent(ctx, h.logger, "login", "", false, map[string]interface{}{
			"provider": h.provider.Name(),
			"code":     string(apperror.CodeOf(err)),
		})
		response.AppError(w, r, err)
		return
	}

	response.SetCookies(w, outcome.Cookies)
	http.Redirect(w, r, outcome.RedirectTarget, http.StatusFound)
}

func (h *OAuthHandler) complete(r *http.Request) (*inbound.LoginOutcome, error) {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		return nil, apperror.ErrInvalidLoginState(fmt.Sprintf("provider returned %q", providerErr))
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value == "" {
		return nil, apperror.ErrInvalidLoginState("state cookie missing")
	}
	if subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(q.Get("state"))) != 1 {
		return nil, apperror.ErrInvalidLoginState("state mismatch")
	}

	code := q.Get("code")
	if code == "" {
		return nil, apperror.ErrInvalidLoginState("authorization code missing")
	}

	assertion, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		return nil, err
	}
	return h.success.OnLoginSuccess(r.Context(), *assertion)
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
