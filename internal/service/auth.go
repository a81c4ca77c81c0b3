package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

var (
	// ErrNoSession is returned when the request carries no usable token.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired is returned when a token is past its absolute lifetime.
	ErrSessionExpired = errors.New("session expired")
)

// SignInDeniedError reports why the sign-in gate refused a login.
type SignInDeniedError struct {
	Reason domainauth.DenyReason
}

func (e *SignInDeniedError) Error() string {
	return "sign-in denied: " + string(e.Reason)
}

// AuthServiceOptions groups dependencies for AuthService.
//
// Provider, SignIn, Tokens and Sessions are required. Revocations, Clock and
// Logger are optional.
type AuthServiceOptions struct {
	Provider    ports.AuthProvider
	SignIn      *SignInGate
	Tokens      TokenDeps
	Sessions    *SessionProjector
	Revocations ports.RevocationStore
	Clock       clock.Clock
	Logger      *slog.Logger
}

// AuthService orchestrates the login handshake, session reads and sign-out
// on top of the sign-in gate, token mutator and session projector.
type AuthService struct {
	provider    ports.AuthProvider
	signIn      *SignInGate
	codec       ports.TokenCodec
	mutator     *TokenMutator
	sessions    *SessionProjector
	revocations ports.RevocationStore
	clock       clock.Clock
	logger      *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	switch {
	case opts.Provider == nil:
		return nil, errors.New("auth provider is required")
	case opts.SignIn == nil:
		return nil, errors.New("sign-in gate is required")
	case opts.Tokens.Codec == nil || opts.Tokens.Mutator == nil:
		return nil, errors.New("token codec and mutator are required")
	case opts.Sessions == nil:
		return nil, errors.New("session projector is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:    opts.Provider,
		signIn:      opts.SignIn,
		codec:       opts.Tokens.Codec,
		mutator:     opts.Tokens.Mutator,
		sessions:    opts.Sessions,
		revocations: opts.Revocations,
		clock:       clock.OrReal(opts.Clock),
		logger:      logger.With("component", "auth_service"),
	}, nil
}

// ProviderName returns the name of the configured identity provider.
func (s *AuthService) ProviderName() string { return s.provider.Name() }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the signed session token and its claims.
type CompleteLoginResult struct {
	Token  string
	Claims domainauth.Claims
}

// CompleteLogin exchanges the code, runs the sign-in gate, and mints a token.
// A refused login returns *SignInDeniedError and no token.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	attempt, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	if ok, reason := s.signIn.Allow(ctx, attempt); !ok {
		return nil, &SignInDeniedError{Reason: reason}
	}

	claims := s.mutator.Mint(ctx, attempt.User, s.clock.Now())
	token, err := s.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("encode session token: %w", err)
	}
	return &CompleteLoginResult{Token: token, Claims: claims}, nil
}

// SessionResult is a projected session together with the refreshed token
// that should replace the caller's cookie.
type SessionResult struct {
	Session domainauth.Session
	Token   string
}

// Session decodes and refreshes a token, then projects it for the client.
// Errors: ErrNoSession, ErrSessionExpired, ErrNoEmail, ErrNotAuthorized.
func (s *AuthService) Session(ctx context.Context, raw string) (*SessionResult, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	claims, err := s.codec.Decode(ctx, raw)
	if err != nil {
		s.logger.DebugContext(ctx, "session token rejected", "error", err)
		return nil, ErrNoSession
	}

	now := s.clock.Now()
	if age, ok := claims.Age(now); !ok || age > domainauth.MaxSessionAge {
		return nil, ErrSessionExpired
	}

	claims = s.mutator.Refresh(ctx, claims, now)
	sess, err := s.sessions.Project(ctx, claims)
	if err != nil {
		return nil, err
	}

	token, err := s.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("encode session token: %w", err)
	}
	return &SessionResult{Session: sess, Token: token}, nil
}

// Logout revokes the token when a revocation store is configured. Cookies
// are always cleared by the caller regardless of the result.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := s.codec.Decode(ctx, raw)
	if err != nil {
		// Already unusable; nothing to revoke.
		return nil //nolint:nilerr // an invalid token is as good as signed out
	}

	s.logger.InfoContext(ctx, "sign-out", "email", domainauth.RedactEmail(claims.Email))

	if s.revocations == nil || claims.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session token: %w", err)
	}
	return nil
}
