package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/hkdf"
)

const (
	minJWTSecretLength = 32
	pepperInfo         = "arw-api refresh-token pepper v1"
)

type Config struct {
	DatabaseURL string `validate:"required"`

	JWTSecret       string        `validate:"required,min=32"`
	AccessTokenTTL  time.Duration `validate:"gt=0"`
	RefreshTokenTTL time.Duration `validate:"gt=0"`
	// RefreshTokenPepper keys the HMAC stored in place of refresh token values.
	RefreshTokenPepper []byte `validate:"len=32"`

	CookieDomain   string
	CookieSameSite string `validate:"oneof=Strict Lax None"`
	CookieSecure   bool

	OAuth2RedirectURI  string `validate:"required,url"`
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string `validate:"omitempty,url"`
	OIDCIssuerURL      string `validate:"required,url"`

	ServerPort  string `validate:"required,numeric"`
	ServerHost  string
	Environment string

	RedisURL                 string
	RateLimitEnabled         bool
	RateLimitRefreshAttempts int           `validate:"gte=0"`
	RateLimitRefreshWindow   time.Duration `validate:"gte=0"`
	RateLimitLoginAttempts   int           `validate:"gte=0"`
	RateLimitLoginWindow     time.Duration `validate:"gte=0"`
	// Zero disables blocking; offenders are then only limited for the rest of the window.
	RateLimitRefreshBlock time.Duration `validate:"gte=0"`
	RateLimitLoginBlock   time.Duration `validate:"gte=0"`
	// TrustedProxies lists peers (IPs or CIDRs) whose forwarding headers name the client.
	TrustedProxies []string `validate:"dive,cidr|ip"`

	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `validate:"oneof=json text"`

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret        = fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	ErrInvalidTokenTTL      = errors.New("invalid token expiration, expected a positive number of milliseconds")
	ErrInvalidSameSite      = errors.New("COOKIE_SAMESITE must be one of Strict, Lax, None")
	ErrInsecureSameSiteNone = errors.New("COOKIE_SAMESITE=None requires COOKIE_SECURE=true")
	ErrInvalidPepper        = errors.New("REFRESH_TOKEN_PEPPER must be 32 bytes, hex encoded")
)

var validate = validator.New()

// Load reads configuration from the environment, with values from a .env
// file in the working directory taking effect when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		CookieSameSite: normalizeSameSite(getEnvOrDefault("COOKIE_SAMESITE", "Lax")),
		CookieSecure:   getEnvOrDefaultBool("COOKIE_SECURE", true),

		OAuth2RedirectURI:  getEnvOrDefault("OAUTH2_REDIRECT_URI", "http://localhost:3000"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnvOrDefault("GOOGLE_CALLBACK_URL", "http://localhost:8080/login/oauth2/code/google"),
		OIDCIssuerURL:      getEnvOrDefault("OIDC_ISSUER_URL", "https://accounts.google.com"),

		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:  getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		Environment: getEnvOrDefault("ENV", "development"),

		RedisURL:                 getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitEnabled:         getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RateLimitRefreshAttempts: getEnvOrDefaultInt("RATE_LIMIT_REFRESH_ATTEMPTS", 30),
		RateLimitRefreshWindow:   getEnvOrDefaultDuration("RATE_LIMIT_REFRESH_WINDOW", time.Minute),
		RateLimitLoginAttempts:   getEnvOrDefaultInt("RATE_LIMIT_LOGIN_ATTEMPTS", 10),
		RateLimitLoginWindow:     getEnvOrDefaultDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
		RateLimitRefreshBlock:    getEnvOrDefaultDuration("RATE_LIMIT_REFRESH_BLOCK", 0),
		RateLimitLoginBlock:      getEnvOrDefaultDuration("RATE_LIMIT_LOGIN_BLOCK", 15*time.Minute),
		TrustedProxies:           parseList(os.Getenv("TRUSTED_PROXIES")),

		LogLevel:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, ErrWeakJWTSecret
	}

	var err error
	if cfg.AccessTokenTTL, err = parseMillis(getEnvOrDefault("JWT_ACCESS_TOKEN_EXPIRATION_MS", "900000")); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = parseMillis(getEnvOrDefault("JWT_REFRESH_TOKEN_EXPIRATION_MS", "604800000")); err != nil {
		return nil, err
	}

	switch cfg.CookieSameSite {
	case "Strict", "Lax", "None":
	default:
		return nil, ErrInvalidSameSite
	}
	if cfg.CookieSameSite == "None" && !cfg.CookieSecure {
		return nil, ErrInsecureSameSiteNone
	}

	if cfg.RefreshTokenPepper, err = loadPepper(os.Getenv("REFRESH_TOKEN_PEPPER"), cfg.JWTSecret); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// OAuthEnabled reports whether federated login is configured.
func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// loadPepper uses the configured pepper or derives one from the JWT secret.
func loadPepper(configured, secret string) ([]byte, error) {
	if configured != "" {
		pepper, err := hex.DecodeString(configured)
		if err != nil || len(pepper) != 32 {
			return nil, ErrInvalidPepper
		}
		return pepper, nil
	}
	return DerivePepper(secret)
}

func DerivePepper(secret string) ([]byte, error) {
	pepper := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(pepperInfo))
	if _, err := io.ReadFull(r, pepper); err != nil {
		return nil, fmt.Errorf("derive refresh token pepper: %w", err)
	}
	return pepper, nil
}

func parseMillis(value string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || ms <= 0 {
		return 0, ErrInvalidTokenTTL
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func normalizeSameSite(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// bare numbers are seconds
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
