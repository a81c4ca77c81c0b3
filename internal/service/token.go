package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// TokenMutator builds and refreshes session token claims. It never signs
// anything; encoding is the codec's job.
type TokenMutator struct {
	authz *Authorizer
	newID func() string
}

// NewTokenMutator constructs a TokenMutator backed by authz.
func NewTokenMutator(authz *Authorizer) (*TokenMutator, error) {
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	return &TokenMutator{authz: authz, newID: uuid.NewString}, nil
}

// Mint creates the claims for a freshly signed-in user. AuthTime is stamped
// here and nowhere else.
func (m *TokenMutator) Mint(ctx context.Context, user domainauth.Identity, now time.Time) domainauth.Claims {
	return domainauth.Claims{
		TokenID:   m.newID(),
		Email:     user.Email,
		Name:      user.Name,
		Picture:   user.Picture,
		IsAdmin:   m.authz.IsAllowed(ctx, user.Email),
		AuthTime:  now.UnixMilli(),
		IssuedAt:  now,
		ExpiresAt: now.Add(domainauth.TokenMaxAge),
	}
}

// Refresh recomputes IsAdmin against the current allow-list and slides the
// token expiry. AuthTime and the token id are preserved. A token without an
// email keeps its IsAdmin value untouched.
func (m *TokenMutator) Refresh(ctx context.Context, c domainauth.Claims, now time.Time) domainauth.Claims {
	if c.HasEmail() {
		c.IsAdmin = m.authz.IsAllowed(ctx, c.Email)
	}
	c.IssuedAt = now
	c.ExpiresAt = now.Add(domainauth.TokenMaxAge)
	return c
}

// NeedsReissue reports whether a token is old enough that the gate should
// hand the browser a refreshed one.
func NeedsReissue(c domainauth.Claims, now time.Time) bool {
	if c.IssuedAt.IsZero() {
		return true
	}
	return now.Sub(c.IssuedAt) > domainauth.TokenUpdateAge
}
