package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/entity"
)

type memoryUserRepository struct {
	mu      sync.Mutex
	byID    map[string]*entity.User
	findErr error
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{byID: make(map[string]*entity.User)}
}

func (m *memoryUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, outbound.ErrUserNotFound
}

func (m *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, outbound.ErrUserNotFound
}

func (m *memoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUserRepository) Update(ctx context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return outbound.ErrUserNotFound
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUserRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memoryRefreshTokenRepository keeps rows keyed by user id, mirroring UNIQUE(user_id).
type memoryRefreshTokenRepository struct {
	mu        sync.Mutex
	byUser    map[string]*entity.RefreshToken
	createErr error
}

func newMemoryRefreshTokenRepository() *memoryRefreshTokenRepository {
	return &memoryRefreshTokenRepository{byUser: make(map[string]*entity.RefreshToken)}
}

func (m *memoryRefreshTokenRepository) FindByUserIDForUpdate(ctx context.Context, userID string) (*entity.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.byUser[userID]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, outbound.ErrRefreshTokenNotFound
}

func (m *memoryRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.byUser {
		if rt.Token == token {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, outbound.ErrRefreshTokenNotFound
}

func (m *memoryRefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *token
	m.byUser[token.UserID] = &cp
	return nil
}

func (m *memoryRefreshTokenRepository) UpdateToken(ctx context.Context, token *entity.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[token.UserID]; !ok {
		return outbound.ErrRefreshTokenNotFound
	}
	cp := *token
	m.byUser[token.UserID] = &cp
	return nil
}

func (m *memoryRefreshTokenRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, rt := range m.byUser {
		if rt.ID == id {
			delete(m.byUser, userID)
		}
	}
	return nil
}

func (m *memoryRefreshTokenRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, rt := range m.byUser {
		if rt.Token == token {
			delete(m.byUser, userID)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRefreshTokenRepository) rows() []entity.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.RefreshToken, 0, len(m.byUser))
	for _, rt := range m.byUser {
		out = append(out, *rt)
	}
	return out
}

type passthroughTransactor struct {
	calls int
}

func (p *passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) GenerateAccessToken(user *entity.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) GenerateAccessTokenForSubject(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) ValidateToken(token string) bool {
	return m.Called(token).Bool(0)
}

func (m *mockTokenIssuer) ExtractClaims(token string) (*outbound.AccessClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*outbound.AccessClaims)
	return claims, args.Error(1)
}

func (m *mockTokenIssuer) AccessTokenTTL() time.Duration {
	return 15 * time.Minute
}

type plainCookieTransport struct{}

func (plainCookieTransport) BuildSessionCookie(name, value string, maxAgeSeconds int) *http.Cookie {
	return &http.Cookie{Name: name, Value: value, MaxAge: maxAgeSeconds, Path: "/", HttpOnly: true}
}

func (plainCookieTransport) BuildClearedCookie(name string) *http.Cookie {
	return &http.Cookie{Name: name, MaxAge: -1, Path: "/", HttpOnly: true}
}

var errStoreDown = errors.New("connection refused")

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
