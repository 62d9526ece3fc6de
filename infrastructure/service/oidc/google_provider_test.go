package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arw/arw-api/domain/apperror"
)

// newIssuer serves a discovery document and a token endpoint answering with tokenBody.
func newIssuer(t *testing.T, tokenBody map[string]interface{}) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenBody)
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[]}`))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(context.Background(), ProviderConfig{
		IssuerURL:    srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "http://localhost:8080/login/oauth2/code/google",
	})
	require.NoError(t, err)
	return p
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	srv := newIssuer(t, nil)
	p := newTestProvider(t, srv)

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, "/auth", u.Path)
	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "google", p.Name())
}

func TestGoogleProvider_ExchangeWithoutIDToken(t *testing.T) {
	srv := newIssuer(t, map[string]interface{}{
		"access_token": "at",
		"token_type":   "Bearer",
	})
	p := newTestProvider(t, srv)

	_, err := p.Exchange(context.Background(), "code-1")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeExternalServiceError))
}

func TestGoogleProvider_ExchangeRejectsUnverifiableIDToken(t *testing.T) {
	srv := newIssuer(t, map[string]interface{}{
		"access_token": "at",
		"token_type":   "Bearer",
		"id_token":     "not.a.jwt",
	})
	p := newTestProvider(t, srv)

	_, err := p.Exchange(context.Background(), "code-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperror.HTTPStatus(err))
}

func TestNewGoogleProvider_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleProvider(context.Background(), ProviderConfig{IssuerURL: "http://127.0.0.1:0"})
	assert.Error(t, err)
}

func TestIDTokenClaims_Assertion(t *testing.T) {
	verified, unverified := true, false

	a, err := idTokenClaims{Email: " alice@x.com ", EmailVerified: &verified, Name: "Alice", Picture: "https://pics.example/a.png"}.assertion()
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", a.Email)
	assert.Equal(t, "Alice", a.Name)
	assert.NoError(t, a.Validate())

	_, err = idTokenClaims{Email: "alice@x.com", EmailVerified: &unverified}.assertion()
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeIdentityAssertionIncomplete))

	// no email claim: the orchestrator rejects it
	a, err = idTokenClaims{Name: "Alice"}.assertion()
	require.NoError(t, err)
	assert.Error(t, a.Validate())
}
