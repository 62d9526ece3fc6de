package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arw/arw-api/application/usecase"
	"github.com/arw/arw-api/infrastructure/adapter/postgres"
	"github.com/arw/arw-api/infrastructure/config"
	"github.com/arw/arw-api/infrastructure/http/handler"
	"github.com/arw/arw-api/infrastructure/http/middleware"
	"github.com/arw/arw-api/infrastructure/http/router"
	"github.com/arw/arw-api/infrastructure/service/cookie"
	"github.com/arw/arw-api/infrastructure/service/jwt"
	"github.com/arw/arw-api/infrastructure/service/logger"
	"github.com/arw/arw-api/infrastructure/service/metrics"
	"github.com/arw/arw-api/infrastructure/service/oidc"
	"github.com/arw/arw-api/infrastructure/service/ratelimit"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "arw-api",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})
	if cfg.IsProduction() && !cfg.CookieSecure {
		structuredLogger.Warn(ctx, "COOKIE_SECURE is disabled in production", nil)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to connect to database", err, nil)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	structuredLogger.Info(ctx, "Database connection established", nil)

	if *migrate {
		if err := postgres.Migrate(ctx, db, "up"); err != nil {
			structuredLogger.Error(ctx, "Failed to apply migrations", err, nil)
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// Rate limiting fails open, so a missing Redis only disables it.
	var redisClient *redis.Client
	if cfg.RateLimitEnabled {
		redisClient, err = ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			structuredLogger.Warn(ctx, "Redis unavailable, rate limiting disabled", map[string]interface{}{
				"error": err.Error(),
			})
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	rateLimitService := ratelimit.NewRateLimitService(redisClient, structuredLogger)

	// Repositories
	userRepo := postgres.NewUserRepositoryAdapter(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepositoryAdapter(db, cfg.RefreshTokenPepper)
	transactor := postgres.NewTransactor(db)

	// Services
	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	cookieService := cookie.NewCookieService(cfg)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	// Use cases
	refreshStore := usecase.NewRefreshTokenStore(refreshTokenRepo, transactor, structuredLogger, cfg.RefreshTokenTTL)
	sessionUseCase := usecase.NewSessionUseCase(userRepo, tokenService, refreshStore, cookieService, transactor, structuredLogger)
	orchestrator := usecase.NewAuthenticationOrchestrator(userRepo, tokenService, refreshStore, cookieService, transactor, structuredLogger,
		usecase.OrchestratorConfig{
			AccessTokenTTL:  cfg.AccessTokenTTL,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
			RedirectURI:     cfg.OAuth2RedirectURI,
		})

	var oauthHandler *handler.OAuthHandler
	if cfg.OAuthEnabled() {
		provider, err := oidc.NewGoogleProvider(ctx, oidc.ProviderConfig{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
		})
		if err != nil {
			structuredLogger.Error(ctx, "Failed to initialize identity provider", err, map[string]interface{}{
				"issuer": cfg.OIDCIssuerURL,
			})
			log.Fatalf("Failed to initialize identity provider: %v", err)
		}
		oauthHandler = handler.NewOAuthHandler(provider, orchestrator, cookieService, m, structuredLogger)
	} else {
		structuredLogger.Warn(ctx, "Google login disabled, GOOGLE_CLIENT_ID not set", nil)
	}

	routes := router.New(router.Dependencies{
		Auth:          handler.NewAuthHandler(sessionUseCase, m, structuredLogger),
		OAuth:         oauthHandler,
		Users:         handler.NewUserHandler(),
		Health:        handler.NewHealthHandler(db, redisClient),
		Metrics:       m,
		Authenticator: middleware.NewAuthenticator(tokenService, userRepo, structuredLogger),
		RateLimiter:   middleware.NewRateLimitMiddleware(rateLimitService, structuredLogger, cfg.TrustedProxies),
		RefreshPolicy: middleware.RateLimitPolicy{
			Name:          "refresh",
			Limit:         cfg.RateLimitRefreshAttempts,
			Window:        cfg.RateLimitRefreshWindow,
			BlockDuration: cfg.RateLimitRefreshBlock,
		},
		LoginPolicy: middleware.RateLimitPolicy{
			Name:          "login",
			Limit:         cfg.RateLimitLoginAttempts,
			Window:        cfg.RateLimitLoginWindow,
			BlockDuration: cfg.RateLimitLoginBlock,
		},
		FrontendURL: cfg.OAuth2RedirectURI,
		CORSOrigins: cfg.CORSAllowedOrigins,
		CORSCreds:   cfg.CORSAllowCredentials,
		CORSEnabled: cfg.CORSEnabled,
		Logger:      structuredLogger,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(routes, "arw-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"addr": server.Addr,
			})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
