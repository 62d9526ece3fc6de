package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/domain/valueobject"
)

const providerName = "google"

type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// GoogleProvider performs the OpenID Connect code flow and hands back the
// verified email, name and picture of the signed-in account.
type GoogleProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

var _ outbound.IdentityProvider = (*GoogleProvider)(nil)

// NewGoogleProvider runs discovery against the issuer.
func NewGoogleProvider(ctx context.Context, cfg ProviderConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oidc client id and secret are required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	return &GoogleProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

func (p *GoogleProvider) Name() string {
	return providerName
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*valueobject.IdentityAssertion, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.ErrExternalServiceError(providerName, fmt.Errorf("exchange code: %w", err))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperror.ErrExternalServiceError(providerName, errors.New("missing id_token in response"))
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperror.ErrExternalServiceError(providerName, fmt.Errorf("verify id_token: %w", err))
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperror.ErrExternalServiceError(providerName, fmt.Errorf("parse claims: %w", err))
	}
	return claims.assertion()
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// assertion rejects accounts whose email the provider reports as unverified.
func (c idTokenClaims) assertion() (*valueobject.IdentityAssertion, error) {
	if c.EmailVerified != nil && !*c.EmailVerified {
		return nil, apperror.ErrIdentityAssertionIncomplete("email_verified")
	}
	a := valueobject.NewIdentityAssertion(c.Email, c.Name, c.Picture)
	return &a, nil
}
