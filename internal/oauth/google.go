package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sublyy/sublyy-backend/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleIssuer = "https://accounts.google.com"

// Identity is the verified subset of the Google ID token this service needs.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Google performs the authorization-code flow against Google and verifies
// the returned ID token through the provider's published keys.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle discovers the Google OIDC provider and prepares the code-flow
// config. Fails when the provider metadata cannot be fetched.
func NewGoogle(ctx context.Context, cfg *config.Config) (*Google, error) {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" || cfg.Google.CallbackURL == "" {
		return nil, errors.New("google oauth not configured")
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover google provider: %w", err)
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.CallbackURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.Google.ClientID}),
	}, nil
}

// AuthURL returns the Google consent-screen URL carrying the CSRF state.
func (g *Google) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// ExchangeCode redeems the provider authorization code, verifies the ID
// token, and returns the asserted identity.
func (g *Google) ExchangeCode(ctx context.Context, code string) (*Identity, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("token response missing id_token")
	}
	idToken, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
