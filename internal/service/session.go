package service

import (
	"context"
	"errors"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

var (
	// ErrNoEmail is returned when a token carries no identity.
	ErrNoEmail = errors.New("token has no email")
	// ErrNotAuthorized is returned when the token's email is no longer allowed.
	ErrNotAuthorized = errors.New("user is not authorized")
)

// SessionProjector turns token claims into the client-visible session.
type SessionProjector struct {
	authz *Authorizer
}

// NewSessionProjector constructs a SessionProjector backed by authz.
func NewSessionProjector(authz *Authorizer) (*SessionProjector, error) {
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	return &SessionProjector{authz: authz}, nil
}

// Project re-checks the allow-list independently of the request gate and
// refuses to produce a session for anyone not on it.
func (p *SessionProjector) Project(ctx context.Context, c domainauth.Claims) (domainauth.Session, error) {
	if !c.HasEmail() {
		return domainauth.Session{}, ErrNoEmail
	}
	if !p.authz.IsAllowed(ctx, c.Email) {
		return domainauth.Session{}, ErrNotAuthorized
	}
	return domainauth.Session{
		User: domainauth.SessionUser{
			Name:     c.Name,
			Email:    c.Email,
			Image:    c.Picture,
			IsAdmin:  c.IsAdmin,
			AuthTime: c.AuthTime,
		},
		Expires: c.ExpiresAt,
	}, nil
}
