// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"time"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Name is the provider identifier stamped on every Account it returns.
	Name() string

	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns
	// the identity, account and profile the sign-in gate evaluates.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.SignInAttempt, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AllowlistSource yields the current allow-list. Implementations must read
// their backing configuration on every call; callers never cache the result
// beyond a single evaluation.
type AllowlistSource interface {
	Allowlist(ctx context.Context) (domainauth.Allowlist, error)
}

// TokenCodec signs and verifies session tokens.
type TokenCodec interface {
	Encode(claims domainauth.Claims) (string, error)
	Decode(ctx context.Context, raw string) (domainauth.Claims, error)
}

// RevocationStore remembers token ids that were explicitly signed out.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
