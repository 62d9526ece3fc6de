package outbound

import (
	"time"

	"github.com/arw/arw-api/domain/entity"
	"github.com/arw/arw-api/domain/valueobject"
)

// AccessClaims is the decoded, verified content of an access token.
type AccessClaims struct {
	Subject   valueobject.TokenSubject
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenIssuer interface {
	// GenerateAccessToken issues an embedded-subject token carrying the user's profile.
	GenerateAccessToken(user *entity.User) (string, error)
	// GenerateAccessTokenForSubject issues a directory-subject token carrying only the email.
	GenerateAccessTokenForSubject(email string) (string, error)
	ValidateToken(token string) bool
	ExtractClaims(token string) (*AccessClaims, error)
	AccessTokenTTL() time.Duration
}
