package service

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

// AuthorizerOptions groups dependencies for Authorizer.
type AuthorizerOptions struct {
	Source ports.AllowlistSource // Required: allow-list, read on every check
	Logger *slog.Logger          // Optional: structured logger
}

// Authorizer answers the single question every auth step asks: is this email
// an admin right now. The allow-list is fetched from Source on every call, so
// removing an address takes effect on the next request without a restart.
type Authorizer struct {
	source ports.AllowlistSource
	logger *slog.Logger
}

// NewAuthorizer constructs a new Authorizer.
func NewAuthorizer(opts AuthorizerOptions) (*Authorizer, error) {
	if opts.Source == nil {
		return nil, errors.New("AllowlistSource is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{source: opts.Source, logger: logger.With("component", "authorizer")}, nil
}

// MustNewAuthorizer constructs a new Authorizer and panics on error.
func MustNewAuthorizer(opts AuthorizerOptions) *Authorizer {
	a, err := NewAuthorizer(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return a
}

// IsAllowed reports whether email is on the allow-list. It fails closed: an
// empty email, an empty list, or an unreadable source all deny.
func (a *Authorizer) IsAllowed(ctx context.Context, email string) bool {
	if domainauth.NormalizeEmail(email) == "" {
		return false
	}

	list, err := a.source.Allowlist(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "allow-list unavailable; all access denied",
			"reason", "source_error",
			"error", err)
		return false
	}
	if list.Empty() {
		a.logger.ErrorContext(ctx, "allow-list empty; all access denied",
			"reason", "misconfiguration")
		return false
	}
	return list.Contains(email)
}
