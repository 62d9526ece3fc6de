package inbound

import (
	"context"
	"net/http"

	"github.com/arw/arw-api/domain/valueobject"
)

// LoginOutcome is what the HTTP layer writes back after a federated login.
type LoginOutcome struct {
	Cookies        []*http.Cookie
	RedirectTarget string
}

type LoginSuccessHandler interface {
	OnLoginSuccess(ctx context.Context, assertion valueobject.IdentityAssertion) (*LoginOutcome, error)
}

type SessionOutcome struct {
	Cookies []*http.Cookie
}

type SessionUseCase interface {
	// Refresh exchanges a refresh token for a new access token cookie.
	Refresh(ctx context.Context, refreshToken string) (*SessionOutcome, error)
	// Logout revokes the refresh token, if any, and returns cleared cookies.
	Logout(ctx context.Context, refreshToken string) (*SessionOutcome, error)
}

// PrincipalResolver turns an access token into the caller's principal.
// A nil principal with a nil error means the token is not usable.
type PrincipalResolver interface {
	Resolve(ctx context.Context, accessToken string) (*valueobject.Principal, error)
}
