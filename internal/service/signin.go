package service

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// SignInGateOptions groups dependencies for SignInGate.
type SignInGateOptions struct {
	Authorizer *Authorizer // Required
	// RequiredProvider is the only provider accepted. Defaults to Google.
	RequiredProvider string
	Logger           *slog.Logger // Optional: audit logger
}

// SignInGate decides whether a completed IdP login may become a session.
type SignInGate struct {
	authz    *Authorizer
	provider string
	logger   *slog.Logger
}

// NewSignInGate constructs a new SignInGate.
func NewSignInGate(opts SignInGateOptions) (*SignInGate, error) {
	if opts.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	provider := opts.RequiredProvider
	if provider == "" {
		provider = domainauth.ProviderGoogle
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SignInGate{
		authz:    opts.Authorizer,
		provider: provider,
		logger:   logger.With("component", "signin_gate"),
	}, nil
}

// Allow runs the sign-in checks in order and stops at the first failure:
// email present, email allowed, provider pinned, email verified. A profile
// that omits the verified flag is accepted.
func (g *SignInGate) Allow(ctx context.Context, in domainauth.SignInAttempt) (bool, domainauth.DenyReason) {
	email := in.User.Email
	shown := g.displayEmail(email)
	g.logger.InfoContext(ctx, "sign-in attempt",
		"email", shown,
		"provider", in.Account.Provider)

	reason := g.check(ctx, in)
	if reason != domainauth.DenyNone {
		g.logger.WarnContext(ctx, "sign-in denied",
			"email", shown,
			"provider", in.Account.Provider,
			"reason", string(reason))
		return false, reason
	}

	g.logger.InfoContext(ctx, "sign-in successful", "email", shown)
	return true, domainauth.DenyNone
}

func (g *SignInGate) check(ctx context.Context, in domainauth.SignInAttempt) domainauth.DenyReason {
	if domainauth.NormalizeEmail(in.User.Email) == "" {
		return domainauth.DenyNoEmail
	}
	if !g.authz.IsAllowed(ctx, in.User.Email) {
		return domainauth.DenyNotAllowed
	}
	if in.Account.Provider != g.provider {
		return domainauth.DenyWrongProvider
	}
	if v := in.Profile.EmailVerified; v != nil && !*v {
		return domainauth.DenyEmailUnverified
	}
	return domainauth.DenyNone
}

// displayEmail redacts the address unless the logger is at debug level.
func (g *SignInGate) displayEmail(email string) string {
	if g.logger.Enabled(context.Background(), slog.LevelDebug) {
		if email == "" {
			return "unknown"
		}
		return email
	}
	return domainauth.RedactEmail(email)
}
