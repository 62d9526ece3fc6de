package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/valueobject"
	"github.com/arw/arw-api/infrastructure/config"
	"github.com/arw/arw-api/infrastructure/http/middleware"
	"github.com/arw/arw-api/infrastructure/service/cookie"
	"github.com/arw/arw-api/infrastructure/service/logger"
	"github.com/arw/arw-api/infrastructure/service/metrics"
)

type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Refresh(ctx context.Context, refreshToken string) (*inbound.SessionOutcome, error) {
	args := m.Called(ctx, refreshToken)
	out, _ := args.Get(0).(*inbound.SessionOutcome)
	return out, args.Error(1)
}

func (m *mockSessionUseCase) Logout(ctx context.Context, refreshToken string) (*inbound.SessionOutcome, error) {
	args := m.Called(ctx, refreshToken)
	out, _ := args.Get(0).(*inbound.SessionOutcome)
	return out, args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) Name() string { return "google" }

func (m *mockIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + url.QueryEscape(state)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (*valueobject.IdentityAssertion, error) {
	args := m.Called(ctx, code)
	out, _ := args.Get(0).(*valueobject.IdentityAssertion)
	return out, args.Error(1)
}

type mockLoginSuccessHandler struct {
	mock.Mock
}

func (m *mockLoginSuccessHandler) OnLoginSuccess(ctx context.Context, assertion valueobject.IdentityAssertion) (*inbound.LoginOutcome, error) {
	args := m.Called(ctx, assertion)
	out, _ := args.Get(0).(*inbound.LoginOutcome)
	return out, args.Error(1)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperror.ErrorCode {
	t.Helper()
	var body apperror.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestAuthHandler_Refresh(t *testing.T) {
	sessions := new(mockSessionUseCase)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	h := NewAuthHandler(sessions, m, logger.NewNopLogger())

	access := &http.Cookie{Name: outbound.AccessTokenCookie, Value: "new-access", MaxAge: 900}
	sessions.On("Refresh", mock.Anything, "good").Return(&inbound.SessionOutcome{Cookies: []*http.Cookie{access}}, nil)
	sessions.On("Refresh", mock.Anything, "stale").Return(nil, apperror.ErrRefreshTokenExpired())
	sessions.On("Refresh", mock.Anything, "").Return(nil, apperror.ErrMissingCookie(outbound.RefreshTokenCookie))

	t.Run("success sets access cookie only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: outbound.RefreshTokenCookie, Value: "good"})
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, findCookie(rec, outbound.AccessTokenCookie))
		assert.Equal(t, "new-access", findCookie(rec, outbound.AccessTokenCookie).Value)
		assert.Nil(t, findCookie(rec, outbound.RefreshTokenCookie))
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: outbound.RefreshTokenCookie, Value: "stale"})
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperror.ErrCodeRefreshTokenExpired, errorCode(t, rec))
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperror.ErrCodeMissingCookie, errorCode(t, rec))
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("refresh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("refresh", string(apperror.ErrCodeRefreshTokenExpired))))
}

func TestAuthHandler_Logout(t *testing.T) {
	sessions := new(mockSessionUseCase)
	h := NewAuthHandler(sessions, nil, logger.NewNopLogger())

	cleared := []*http.Cookie{
		{Name: outbound.AccessTokenCookie, Path: "/", MaxAge: -1},
		{Name: outbound.RefreshTokenCookie, Path: "/", MaxAge: -1},
	}
	sessions.On("Logout", mock.Anything, "r-1").Return(&inbound.SessionOutcome{Cookies: cleared}, nil).Once()
	sessions.On("Logout", mock.Anything, "r-2").Return(nil, apperror.ErrStoreUnavailable("delete refresh token", errors.New("down"))).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: outbound.RefreshTokenCookie, Value: "r-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	setCookies := rec.Header().Values("Set-Cookie")
	require.Len(t, setCookies, 2)
	for _, sc := range setCookies {
		assert.Contains(t, sc, "Max-Age=0")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: outbound.RefreshTokenCookie, Value: "r-2"})
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	sessions.AssertExpectations(t)
}

func newOAuthFixture() (*OAuthHandler, *mockIdentityProvider, *mockLoginSuccessHandler) {
	provider := new(mockIdentityProvider)
	success := new(mockLoginSuccessHandler)
	cookies := cookie.NewCookieService(&config.Config{CookieSameSite: "Strict", CookieSecure: true})
	return NewOAuthHandler(provider, success, cookies, nil, logger.NewNopLogger()), provider, success
}

func callbackRequest(query url.Values, state string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google?"+query.Encode(), nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: StateCookieName, Value: state})
	}
	return req
}

func TestOAuthHandler_InitiateSetsLaxStateCookie(t *testing.T) {
	h, _, _ := newOAuthFixture()
	rec := httptest.NewRecorder()

	h.Initiate(rec, httptest.NewRequest(http.MethodGet, "/oauth2/authorization/google", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	state := findCookie(rec, StateCookieName)
	require.NotNil(t, state)
	assert.Len(t, state.Value, 43)
	assert.Equal(t, StateCookiePath, state.Path)
	assert.Equal(t, http.SameSiteLaxMode, state.SameSite)
	assert.True(t, state.HttpOnly)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, location.Query().Get("state"))
}

func TestOAuthHandler_CallbackSuccess(t *testing.T) {
	h, provider, success := newOAuthFixture()
	assertion := valueobject.NewIdentityAssertion("alice@x.com", "Alice", "")
	provider.On("Exchange", mock.Anything, "auth-code").Return(&assertion, nil)
	success.On("OnLoginSuccess", mock.Anything, assertion).Return(&inbound.LoginOutcome{
		Cookies: []*http.Cookie{
			{Name: outbound.AccessTokenCookie, Value: "a"},
			{Name: outbound.RefreshTokenCookie, Value: "r"},
		},
		RedirectTarget: "http://localhost:3000",
	}, nil)

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest(url.Values{"state": {"s-1"}, "code": {"auth-code"}}, "s-1"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))
	assert.NotNil(t, findCookie(rec, outbound.AccessTokenCookie))
	assert.NotNil(t, findCookie(rec, outbound.RefreshTokenCookie))
	cleared := findCookie(rec, StateCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	success.AssertExpectations(t)
}

func TestOAuthHandler_CallbackRejections(t *testing.T) {
	tests := []struct {
		name   string
		query  url.Values
		cookie string
	}{
		{name: "provider error", query: url.Values{"error": {"access_denied"}, "state": {"s-1"}}, cookie: "s-1"},
		{name: "missing state cookie", query: url.Values{"state": {"s-1"}, "code": {"c"}}},
		{name: "state mismatch", query: url.Values{"state": {"s-2"}, "code": {"c"}}, cookie: "s-1"},
		{name: "missing code", query: url.Values{"state": {"s-1"}}, cookie: "s-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, provider, success := newOAuthFixture()
			rec := httptest.NewRecorder()

			h.Callback(rec, callbackRequest(tt.query, tt.cookie))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apperror.ErrCodeInvalidLoginState, errorCode(t, rec))
			assert.NotNil(t, findCookie(rec, StateCookieName))
			provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
			success.AssertNotCalled(t, "OnLoginSuccess", mock.Anything, mock.Anything)
		})
	}
}

func TestOAuthHandler_CallbackPropagatesFailures(t *testing.T) {
	h, provider, success := newOAuthFixture()
	provider.On("Exchange", mock.Anything, "bad").Return(nil, apperror.ErrExternalServiceError("google", errors.New("invalid_grant")))
	incomplete := valueobject.NewIdentityAssertion("", "", "")
	provider.On("Exchange", mock.Anything, "no-email").Return(&incomplete, nil)
	success.On("OnLoginSuccess", mock.Anything, incomplete).Return(nil, apperror.ErrIdentityAssertionIncomplete("email"))

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest(url.Values{"state": {"s"}, "code": {"bad"}}, "s"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	h.Callback(rec, callbackRequest(url.Values{"state": {"s"}, "code": {"no-email"}}, "s"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.ErrCodeIdentityAssertionIncomplete, errorCode(t, rec))
	assert.Nil(t, findCookie(rec, outbound.AccessTokenCookie))
}

func TestUserHandler_Me(t *testing.T) {
	h := NewUserHandler()
	principal := &valueobject.Principal{UserID: "u-1", Email: "alice@x.com", Name: "Alice", Source: valueobject.SubjectDirectory}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status bool                  `json:"status"`
		Data   valueobject.Principal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Status)
	assert.Equal(t, *principal, body.Data)

	rec = httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	h := NewHealthHandler(db, client)

	dbMock.ExpectPing()
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	mr.Close()
	dbMock.ExpectPing()
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), StatusHealthy)
}
