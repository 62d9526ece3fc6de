package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

type SessionUseCase struct {
	users         outbound.UserRepository
	tokens        outbound.TokenIssuer
	refreshTokens *RefreshTokenStore
	cookies       outbound.CookieTransport
	tx            outbound.Transactor
	logger        logger.Logger
}

var _ inbound.SessionUseCase = (*SessionUseCase)(nil)

func NewSessionUseCase(
	users outbound.UserRepository,
	tokens outbound.TokenIssuer,
	refreshTokens *RefreshTokenStore,
	cookies outbound.CookieTransport,
	tx outbound.Transactor,
	log logger.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		users:         users,
		tokens:        tokens,
		refreshTokens: refreshTokens,
		cookies:       cookies,
		tx:            tx,
		logger:        log,
	}
}

// Refresh issues a new directory-subject access token for the owner of
// refreshToken. The refresh token itself is left untouched.
func (uc *SessionUseCase) Refresh(ctx context.Context, refreshToken string) (*inbound.SessionOutcome, error) {
	if refreshToken == "" {
		return nil, apperror.ErrMissingCookie(outbound.RefreshTokenCookie)
	}

	var accessToken, subject string
	// expiry is reported after commit so the stale row stays deleted
	var expired error
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		row, err := uc.refreshTokens.FindByToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		row, err = uc.refreshTokens.VerifyExpiration(ctx, row)
		if apperror.HasCode(err, apperror.ErrCodeRefreshTokenExpired) {
			expired = err
			return nil
		}
		if err != nil {
			return err
		}

		user, err := uc.users.FindByID(ctx, row.UserID)
		if errors.Is(err, outbound.ErrUserNotFound) {
			return apperror.ErrUserNotFound(row.UserID)
		}
		if err != nil {
			return fmt.Errorf("find refresh token owner: %w", err)
		}

		subject = user.Email
		accessToken, err = uc.tokens.GenerateAccessTokenForSubject(user.Email)
		if err != nil {
			return apperror.ErrInternalServerError("issue access token", err)
		}
		return nil
	})
	if err == nil {
		err = expired
	}
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "refresh", subject, false, map[string]interface{}{
			"error_code": string(apperror.CodeOf(err)),
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "refresh", subject, true, nil)
	return &inbound.SessionOutcome{
		Cookies: []*http.Cookie{
			uc.cookies.BuildSessionCookie(outbound.AccessTokenCookie, accessToken, cookieMaxAge(uc.tokens.AccessTokenTTL())),
		},
	}, nil
}

func (uc *SessionUseCase) Logout(ctx context.Context, refreshToken string) (*inbound.SessionOutcome, error) {
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return uc.refreshTokens.DeleteByToken(ctx, refreshToken)
	})
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "logout", "", false, map[string]interface{}{
			"error_code": string(apperror.CodeOf(err)),
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "logout", "", true, map[string]interface{}{
		"had_refresh_token": refreshToken != "",
	})
	return &inbound.SessionOutcome{
		Cookies: []*http.Cookie{
			uc.cookies.BuildClearedCookie(outbound.AccessTokenCookie),
			uc.cookies.BuildClearedCookie(outbound.RefreshTokenCookie),
		},
	}, nil
}

// cookieMaxAge converts a token lifetime to whole cookie seconds, rounding up
// so a sub-second TTL still yields a persistent cookie.
func cookieMaxAge(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int((ttl + time.Second - 1) / time.Second)
}
