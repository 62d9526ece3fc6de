package postgres

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/entity"
)

const refreshTokenColumns = `id, user_id, expires_at, created_at, updated_at`

// RefreshTokenRepositoryAdapter stores HMAC-SHA256(pepper, value) in place of
// the refresh token value. Rows read back never carry the plaintext.
type RefreshTokenRepositoryAdapter struct {
	db     *sql.DB
	pepper []byte
}

var _ outbound.RefreshTokenRepository = (*RefreshTokenRepositoryAdapter)(nil)

func NewRefreshTokenRepositoryAdapter(db *sql.DB, pepper []byte) *RefreshTokenRepositoryAdapter {
	return &RefreshTokenRepositoryAdapter{
		db:     db,
		pepper: pepper,
	}
}

func (r *RefreshTokenRepositoryAdapter) FindByUserIDForUpdate(ctx context.Context, userID string) (*entity.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
		FOR UPDATE
	`
	return r.findOne(ctx, "lock refresh token", query, userID)
}

func (r *RefreshTokenRepositoryAdapter) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	if token == "" {
		return nil, outbound.ErrRefreshTokenNotFound
	}

	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	return r.findOne(ctx, "find refresh token", query, r.hash(token))
}

func (r *RefreshTokenRepositoryAdapter) findOne(ctx context.Context, operation, query string, arg interface{}) (*entity.RefreshToken, error) {
	var rt entity.RefreshToken
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.ExpiresAt,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, outbound.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, storeError(operation, err)
	}
	return &rt, nil
}

// Create inserts the row; a concurrent first login for the same user lands on
// the UNIQUE(user_id) conflict and overwrites instead.
func (r *RefreshTokenRepositoryAdapter) Create(ctx context.Context, token *entity.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token cannot be nil")
	}
	if token.ID == "" || token.UserID == "" || token.Token == "" {
		return fmt.Errorf("refresh token ID, user ID, and token are required")
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		token.ID,
		token.UserID,
		r.hash(token.Token),
		token.ExpiresAt,
		token.CreatedAt,
		token.UpdatedAt,
	).Scan(&token.ID)
	if err != nil {
		return storeError("create refresh token", err)
	}
	return nil
}

func (r *RefreshTokenRepositoryAdapter) UpdateToken(ctx context.Context, token *entity.RefreshToken) error {
	query := `
		UPDATE refresh_tokens
		SET token_hash = $1, expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		r.hash(token.Token),
		token.ExpiresAt,
		token.UpdatedAt,
		token.ID,
	)
	if err != nil {
		return storeError("rotate refresh token", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError("rotate refresh token", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepositoryAdapter) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return storeError("delete refresh token", err)
	}
	return nil
}

func (r *RefreshTokenRepositoryAdapter) DeleteByToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, r.hash(token))
	if err != nil {
		return false, storeError("delete refresh token", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storeError("delete refresh token", err)
	}
	return rowsAffected > 0, nil
}

func (r *RefreshTokenRepositoryAdapter) hash(token string) []byte {
	mac := hmac.New(sha256.New, r.pepper)
	mac.Write([]byte(token))
	return mac.Sum(nil)
}
