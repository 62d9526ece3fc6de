package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/entity"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

const refreshTokenBytes = 32

// RefreshTokenStore owns the lifecycle of the single refresh token a user may hold.
type RefreshTokenStore struct {
	repo   outbound.RefreshTokenRepository
	tx     outbound.Transactor
	logger logger.Logger
	ttl    time.Duration

	now      func() time.Time
	newToken func() (string, error)
}

func NewRefreshTokenStore(repo outbound.RefreshTokenRepository, tx outbound.Transactor, log logger.Logger, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{
		repo:     repo,
		tx:       tx,
		logger:   log,
		ttl:      ttl,
		now:      time.Now,
		newToken: generateRefreshToken,
	}
}

// CreateOrRotate gives user a fresh refresh token value, overwriting the existing
// row in place when there is one. The plaintext value is returned to the caller
// and is never stored.
func (s *RefreshTokenStore) CreateOrRotate(ctx context.Context, user *entity.User) (string, error) {
	var value string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		token, err := s.newToken()
		if err != nil {
			return apperror.ErrInternalServerError("generate refresh token", err)
		}
		expiresAt := s.now().Add(s.ttl)

		existing, err := s.repo.FindByUserIDForUpdate(ctx, user.ID)
		switch {
		case errors.Is(err, outbound.ErrRefreshTokenNotFound):
			if err := s.repo.Create(ctx, entity.NewRefreshToken(uuid.NewString(), user.ID, token, expiresAt)); err != nil {
				return fmt.Errorf("create refresh token: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lock refresh token: %w", err)
		default:
			existing.Rotate(token, expiresAt)
			if err := s.repo.UpdateToken(ctx, existing); err != nil {
				return fmt.Errorf("rotate refresh token: %w", err)
			}
		}

		value = token
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug(ctx, "Refresh token issued", map[string]interface{}{
		"user_id": user.ID,
	})
	return value, nil
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	if token == "" {
		return nil, apperror.ErrRefreshTokenNotFound()
	}
	row, err := s.repo.FindByToken(ctx, token)
	if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
		return nil, apperror.ErrRefreshTokenNotFound()
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// VerifyExpiration deletes row and fails when it is past its expiry.
func (s *RefreshTokenStore) VerifyExpiration(ctx context.Context, row *entity.RefreshToken) (*entity.RefreshToken, error) {
	if !row.IsExpiredAt(s.now()) {
		return row, nil
	}
	if err := s.repo.Delete(ctx, row.ID); err != nil {
		return nil, fmt.Errorf("delete expired refresh token: %w", err)
	}
	s.logger.Info(ctx, "Expired refresh token removed", map[string]interface{}{
		"user_id":    row.UserID,
		"expired_at": row.ExpiresAt,
	})
	return nil, apperror.ErrRefreshTokenExpired()
}

// DeleteByToken is a no-op for empty or unknown values.
func (s *RefreshTokenStore) DeleteByToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	deleted, err := s.repo.DeleteByToken(ctx, token)
	if err != nil {
		return err
	}
	if deleted {
		s.logger.Debug(ctx, "Refresh token deleted", nil)
	}
	return nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
