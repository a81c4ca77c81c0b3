// Package devauth provides a config-driven AuthProvider for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

// ProviderName is stamped on every account this provider returns. The sign-in
// gate must be configured to require it, so dev logins never pass as Google ones.
const ProviderName = "dev"

// Config controls the dev auth provider behavior.
// Email is required. The identity still has to be on the allow-list to sign in.
type Config struct {
	Email string
	Name  string
	// Unverified reports the email as unverified, for exercising the sign-in gate.
	Unverified bool
}

// Provider implements ports.AuthProvider for local development.
// It short-circuits the OAuth flow by redirecting back to our own callback
// with locally generated state and nonce.
// Exchange ignores the code and returns the configured identity.
type Provider struct {
	attempt domainauth.SignInAttempt
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	verified := !cfg.Unverified
	return &Provider{
		attempt: domainauth.SignInAttempt{
			User:    domainauth.Identity{Subject: "dev:" + cfg.Email, Email: cfg.Email, Name: cfg.Name},
			Account: domainauth.Account{Provider: ProviderName, ProviderAccountID: "dev:" + cfg.Email},
			Profile: domainauth.Profile{Email: cfg.Email, EmailVerified: &verified},
		},
	}, nil
}

func (p *Provider) Name() string { return ProviderName }

// Begin returns a local callback URL and cryptographically secure state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := "/api/auth/callback/" + ProviderName + "?code=dev&state=" + url.QueryEscape(state)
	return authURL, state, nonce, nil
}

// Exchange ignores the provided code/state/nonce (validation handled by handler) and returns the dev login.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.SignInAttempt, error) {
	return p.attempt, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
