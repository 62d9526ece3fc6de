package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/valueobject"
	"github.com/arw/arw-api/infrastructure/http/response"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *valueobject.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *valueobject.Principal {
	p, _ := ctx.Value(principalKey{}).(*valueobject.Principal)
	return p
}

// Authenticator turns the access_token cookie into a request principal.
// Unusable tokens leave the request anonymous; authorization is decided later
// by RequireAuth.
type Authenticator struct {
	tokens outbound.TokenIssuer
	users  outbound.UserRepository
	logger logger.Logger
}

var _ inbound.PrincipalResolver = (*Authenticator)(nil)

func NewAuthenticator(tokens outbound.TokenIssuer, users outbound.UserRepository, log logger.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: log,
	}
}

func (a *Authenticator) Resolve(ctx context.Context, accessToken string) (*valueobject.Principal, error) {
	if !a.tokens.ValidateToken(accessToken) {
		return nil, nil
	}
	claims, err := a.tokens.ExtractClaims(accessToken)
	if err != nil {
		// expired between the two checks
		return nil, nil
	}

	subject := claims.Subject
	switch subject.Kind {
	case valueobject.SubjectEmbedded:
		return &valueobject.Principal{
			Email:   subject.Email,
			Name:    subject.Name,
			Picture: subject.Picture,
			Source:  subject.Kind,
		}, nil
	case valueobject.SubjectDirectory:
		user, err := a.users.FindByEmail(ctx, subject.Email)
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound(subject.Email)
		}
		if err != nil {
			return nil, err
		}
		return &valueobject.Principal{
			UserID:  user.ID,
			Email:   user.Email,
			Name:    user.Name,
			Picture: user.DisplayPicture,
			Source:  subject.Kind,
		}, nil
	}
	return nil, nil
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(outbound.AccessTokenCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		principal, err := a.Resolve(ctx, cookie.Value)
		if err != nil {
			if apperror.HasCode(err, apperror.ErrCodeUserNotFound) {
				logger.LogSecurityEvent(ctx, a.logger, "token_subject_unknown", "MEDIUM", map[string]interface{}{
					"path": r.URL.Path,
				})
			} else {
				a.logger.Error(ctx, "Failed to resolve principal", err, map[string]interface{}{
					"path": r.URL.Path,
				})
			}
			response.AppError(w, r, err)
			return
		}
		if principal == nil {
			a.logger.Debug(ctx, "Ignoring unusable access token", map[string]interface{}{
				"path": r.URL.Path,
			})
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			response.AppError(w, r, apperror.ErrUnauthenticated())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated sends callers that already hold a session to target.
func RedirectIfAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) != nil {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
