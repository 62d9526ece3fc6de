package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/entity"
	"github.com/arw/arw-api/domain/valueobject"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

type OrchestratorConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RedirectURI     string
}

// AuthenticationOrchestrator bridges a successful federated login into local
// user provisioning and token issuance.
type AuthenticationOrchestrator struct {
	users         outbound.UserRepository
	tokens        outbound.TokenIssuer
	refreshTokens *RefreshTokenStore
	cookies       outbound.CookieTransport
	tx            outbound.Transactor
	logger        logger.Logger
	config        OrchestratorConfig
}

var _ inbound.LoginSuccessHandler = (*AuthenticationOrchestrator)(nil)

func NewAuthenticationOrchestrator(
	users outbound.UserRepository,
	tokens outbound.TokenIssuer,
	refreshTokens *RefreshTokenStore,
	cookies outbound.CookieTransport,
	tx outbound.Transactor,
	log logger.Logger,
	config OrchestratorConfig,
) *AuthenticationOrchestrator {
	return &AuthenticationOrchestrator{
		users:         users,
		tokens:        tokens,
		refreshTokens: refreshTokens,
		cookies:       cookies,
		tx:            tx,
		logger:        log,
		config:        config,
	}
}

func (o *AuthenticationOrchestrator) OnLoginSuccess(ctx context.Context, assertion valueobject.IdentityAssertion) (*inbound.LoginOutcome, error) {
	if err := assertion.Validate(); err != nil {
		o.logger.Error(ctx, "Identity assertion rejected", err, nil)
		return nil, err
	}

	var accessToken, refreshToken string
	var user *entity.User
	err := o.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = o.upsertUser(ctx, assertion)
		if err != nil {
			return err
		}

		accessToken, err = o.tokens.GenerateAccessToken(user)
		if err != nil {
			return apperror.ErrInternalServerError("issue access token", err)
		}

		refreshToken, err = o.refreshTokens.CreateOrRotate(ctx, user)
		return err
	})
	if err != nil {
		logger.LogAuthEvent(ctx, o.logger, "login", assertion.Email, false, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	logger.LogAuthEvent(ctx, o.logger, "login", user.Email, true, map[string]interface{}{
		"user_id": user.ID,
	})

	return &inbound.LoginOutcome{
		Cookies: []*http.Cookie{
			o.cookies.BuildSessionCookie(outbound.AccessTokenCookie, accessToken, cookieMaxAge(o.config.AccessTokenTTL)),
			o.cookies.BuildSessionCookie(outbound.RefreshTokenCookie, refreshToken, cookieMaxAge(o.config.RefreshTokenTTL)),
		},
		RedirectTarget: o.config.RedirectURI,
	}, nil
}

// upsertUser provisions the user on first login and overwrites the profile on
// every later one.
func (o *AuthenticationOrchestrator) upsertUser(ctx context.Context, assertion valueobject.IdentityAssertion) (*entity.User, error) {
	user, err := o.users.FindByEmail(ctx, assertion.Email)
	if errors.Is(err, outbound.ErrUserNotFound) {
		user = entity.NewUser(uuid.NewString(), assertion.Email, assertion.Name, assertion.Picture)
		if err := o.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		o.logger.Info(ctx, "User provisioned", map[string]interface{}{
			"user_id": user.ID,
		})
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user.UpdateProfile(assertion.Name, assertion.Picture)
	if err := o.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
