package outbound

import (
	"context"
	"errors"

	"github.com/arw/arw-api/domain/entity"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository persists at most one refresh token per user.
// Lookups by token value compare against the stored digest, never the raw value.
type RefreshTokenRepository interface {
	// FindByUserIDForUpdate locks the user's row, if any, for the current transaction.
	FindByUserIDForUpdate(ctx context.Context, userID string) (*entity.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error)
	// Create inserts the token or, when the user already owns one, replaces it.
	Create(ctx context.Context, token *entity.RefreshToken) error
	UpdateToken(ctx context.Context, token *entity.RefreshToken) error
	Delete(ctx context.Context, id string) error
	// DeleteByToken reports whether a row was removed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
}
