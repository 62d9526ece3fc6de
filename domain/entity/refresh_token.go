package entity

import (
	"time"
)

// RefreshToken is the single active refresh credential of a user.
// Token holds the plaintext value only between generation and the response;
// rows read back from storage leave it empty.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRefreshToken(id, userID, token string, expiresAt time.Time) *RefreshToken {
	now := time.Now()
	return &RefreshToken{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (rt *RefreshToken) IsExpiredAt(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// Rotate replaces the value and expiry in place, keeping the row identity.
func (rt *RefreshToken) Rotate(token string, expiresAt time.Time) {
	rt.Token = token
	rt.ExpiresAt = expiresAt
	rt.UpdatedAt = time.Now()
}
