package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arw/arw-api/infrastructure/http/handler"
	"github.com/arw/arw-api/infrastructure/http/middleware"
	"github.com/arw/arw-api/infrastructure/service/logger"
	"github.com/arw/arw-api/infrastructure/service/metrics"
)

// Dependencies are the handlers and middleware the router mounts. OAuth may be
// nil when no identity provider is configured.
type Dependencies struct {
	Auth    *handler.AuthHandler
	OAuth   *handler.OAuthHandler
	Users   *handler.UserHandler
	Health  *handler.HealthHandler
	Metrics *metrics.Metrics

	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimitMiddleware
	RefreshPolicy middleware.RateLimitPolicy
	LoginPolicy   middleware.RateLimitPolicy

	FrontendURL string
	CORSOrigins []string
	CORSCreds   bool
	CORSEnabled bool
	Logger      logger.Logger
}

// New builds the API router. Everything outside /api/auth, /oauth2, /login,
// /health and /metrics requires an authenticated principal.
func New(d Dependencies) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.CorrelationIDMiddleware)
	r.Use(middleware.Recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.HTTPMetrics(d.Metrics))
	}
	r.Use(d.Authenticator.Authenticate)

	r.HandleFunc("/health", d.Health.Readiness).Methods(http.MethodGet)
	r.HandleFunc("/health/live", d.Health.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", d.Health.Readiness).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Handle("/refresh", d.RateLimiter.Limit(d.RefreshPolicy)(http.HandlerFunc(d.Auth.Refresh))).Methods(http.MethodPost)
	auth.HandleFunc("/logout", d.Auth.Logout).Methods(http.MethodPost)

	if d.OAuth != nil {
		r.Handle("/oauth2/authorization/google",
			middleware.RedirectIfAuthenticated(d.FrontendURL)(http.HandlerFunc(d.OAuth.Initiate))).Methods(http.MethodGet)
		r.Handle("/login/oauth2/code/google",
			d.RateLimiter.Limit(d.LoginPolicy)(http.HandlerFunc(d.OAuth.Callback))).Methods(http.MethodGet)
	}

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuth)
	protected.HandleFunc("/users/me", d.Users.Me).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests are answered before route matching.
	var h http.Handler = r
	if d.CORSEnabled && len(d.CORSOrigins) > 0 {
		h = middleware.CORSMiddleware(d.CORSOrigins, d.CORSCreds)(h)
	}
	return h
}
