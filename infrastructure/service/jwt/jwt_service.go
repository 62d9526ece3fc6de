package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/entity"
	"github.com/arw/arw-api/domain/valueobject"
	"github.com/arw/arw-api/infrastructure/config"
)

const accessTokenType = "access"

var ErrMissingSecret = errors.New("jwt secret is required")

// accessClaims carries iat and exp with millisecond precision through
// millisDate, leaving the package-wide jwt.TimePrecision untouched.
type accessClaims struct {
	Subject     string                  `json:"sub"`
	IssuedAt    *millisDate             `json:"iat,omitempty"`
	ExpiresAt   *millisDate             `json:"exp,omitempty"`
	Type        string                  `json:"type"`
	SubjectKind valueobject.SubjectKind `json:"sub_kind"`
	Name        string                  `json:"name,omitempty"`
	Picture     string                  `json:"picture,omitempty"`
}

var _ jwt.Claims = accessClaims{}

func (c accessClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt.numeric(), nil }
func (c accessClaims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt.numeric(), nil }
func (c accessClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c accessClaims) GetIssuer() (string, error) { return "", nil }
func (c accessClaims) GetSubject() (string, error) { return c.Subject, nil }
func (c accessClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// JWTService issues and verifies HS256 access tokens with a key fixed at construction.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ outbound.TokenIssuer = (*JWTService)(nil)

type Option func(*JWTService)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(cfg *config.Config, opts ...Option) (*JWTService, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", cfg.AccessTokenTTL)
	}

	s := &JWTService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AccessTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithStrictDecoding(),
	)
	return s, nil
}

func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.ttl
}

func (s *JWTService) GenerateAccessToken(user *entity.User) (string, error) {
	return s.sign(valueobject.EmbeddedSubject(user.Email, user.Name, user.DisplayPicture))
}

func (s *JWTService) GenerateAccessTokenForSubject(email string) (string, error) {
	return s.sign(valueobject.DirectorySubject(email))
}

func (s *JWTService) sign(subject valueobject.TokenSubject) (string, error) {
	if subject.Email == "" {
		return "", errors.New("access token subject is empty")
	}
	now := s.now()
	claims := accessClaims{
		Subject:     subject.Email,
		IssuedAt:    newMillisDate(now),
		ExpiresAt:   newMillisDate(now.Add(s.ttl)),
		Type:        accessTokenType,
		SubjectKind: subject.Kind,
	}
	if subject.Kind == valueobject.SubjectEmbedded {
		claims.Name = subject.Name
		claims.Picture = subject.Picture
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// ValidateToken never fails loudly; any defect yields false.
func (s *JWTService) ValidateToken(token string) bool {
	_, err := s.ExtractClaims(token)
	return err == nil
}

func (s *JWTService) ExtractClaims(token string) (*outbound.AccessClaims, error) {
	var claims accessClaims
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, apperror.ErrInvalidToken(classify(err), err)
	}
	if !parsed.Valid {
		return nil, apperror.ErrInvalidToken("token not valid", nil)
	}
	if claims.Type != accessTokenType {
		return nil, apperror.ErrInvalidToken("unexpected token type", nil)
	}
	if claims.Subject == "" {
		return nil, apperror.ErrInvalidToken("missing subject", nil)
	}
	if !claims.SubjectKind.Valid() {
		return nil, apperror.ErrInvalidToken("unknown subject kind", nil)
	}

	out := &outbound.AccessClaims{
		Subject: valueobject.TokenSubject{
			Kind:    claims.SubjectKind,
			Email:   claims.Subject,
			Name:    claims.Name,
			Picture: claims.Picture,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token unverifiable"
	}
	return "token invalid"
}
