package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

// LoginPath is where every denied request is sent.
const LoginPath = "/login"

// Public prefixes never require a session. The OAuth handshake and the
// session endpoint live under /api/auth.
var (
	publicPrefixes = []string{"/login", "/api/auth", "/healthz"}
	assetPrefixes  = []string{"/static", "/favicon"}
)

// securityHeaders are attached to every authorized response.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

// EmailHashHeader carries a pseudonymous id of the signed-in admin.
const EmailHashHeader = "X-User-Email-Hash"

// GateInput is one request as the gate sees it. Token is the raw session
// cookie value, empty when absent.
type GateInput struct {
	Path  string
	Token string
	Now   time.Time
}

// Decision is the gate's verdict for one request.
type Decision struct {
	State domainauth.GateState
	// Redirect is set whenever the request must not proceed.
	Redirect string
	// ClearCookies asks the transport to delete every session cookie name.
	ClearCookies bool
	// Headers are added to the response of an authorized request.
	Headers map[string]string
	// Claims of the authorized session.
	Claims domainauth.Claims
	// Reissued holds a refreshed encoded token when the old one passed its update age.
	Reissued string
}

// Allowed reports whether the request may reach its handler.
func (d Decision) Allowed() bool {
	return d.State == domainauth.GateBypass || d.State == domainauth.GateAuthorized
}

// TokenDeps groups the codec and mutator the gate uses to read and re-issue tokens.
type TokenDeps struct {
	Codec   ports.TokenCodec
	Mutator *TokenMutator
}

// RequestGateOptions groups dependencies for RequestGate.
type RequestGateOptions struct {
	Authorizer *Authorizer // Required
	Tokens     TokenDeps   // Required
	Hasher     domainauth.EmailHasher
	Logger     *slog.Logger // Optional
}

// RequestGate decides for every protected request whether it proceeds.
// Evaluation consults the allow-list afresh each time.
type RequestGate struct {
	authz   *Authorizer
	codec   ports.TokenCodec
	mutator *TokenMutator
	hasher  domainauth.EmailHasher
	logger  *slog.Logger
}

// NewRequestGate constructs a new RequestGate.
func NewRequestGate(opts RequestGateOptions) (*RequestGate, error) {
	if opts.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if opts.Tokens.Codec == nil || opts.Tokens.Mutator == nil {
		return nil, errors.New("token codec and mutator are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestGate{
		authz:   opts.Authorizer,
		codec:   opts.Tokens.Codec,
		mutator: opts.Tokens.Mutator,
		hasher:  opts.Hasher,
		logger:  logger.With("component", "request_gate"),
	}, nil
}

// IsPublicPath reports whether path skips the gate entirely.
func IsPublicPath(path string) bool {
	if strings.Contains(path, ".") {
		return true
	}
	for _, p := range publicPrefixes {
		if hasPathPrefix(path, p) {
			return true
		}
	}
	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches prefix on a segment boundary, so /login matches
// /login and /login/x but not /loginx.
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Evaluate runs the gate state machine. It never lets a request through on
// failure: a panic or unexpected error becomes an AuthError redirect.
func (g *RequestGate) Evaluate(ctx context.Context, in GateInput) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.ErrorContext(ctx, "gate evaluation panicked", "path", in.Path, "panic", fmt.Sprint(rec))
			d = errorDecision()
		}
	}()

	if IsPublicPath(in.Path) {
		return Decision{State: domainauth.GateBypass}
	}

	d, err := g.evaluate(ctx, in)
	if err != nil {
		g.logger.ErrorContext(ctx, "gate evaluation failed", "path", in.Path, "error", err)
		return errorDecision()
	}
	return d
}

func (g *RequestGate) evaluate(ctx context.Context, in GateInput) (Decision, error) {
	if in.Token == "" {
		g.logger.DebugContext(ctx, "no token, redirecting to login", "path", in.Path)
		return noTokenDecision(in.Path), nil
	}
	claims, err := g.codec.Decode(ctx, in.Token)
	if err != nil {
		g.logger.DebugContext(ctx, "token rejected, redirecting to login", "path", in.Path, "error", err)
		return noTokenDecision(in.Path), nil
	}

	if !claims.HasEmail() {
		g.logger.ErrorContext(ctx, "token exists but carries no email", "path", in.Path)
		return Decision{
			State:    domainauth.GateTokenNoEmail,
			Redirect: loginWithError(domainauth.ErrCodeNoEmail),
		}, nil
	}

	hash := g.hasher.Hash(claims.Email)
	if !g.authz.IsAllowed(ctx, claims.Email) {
		g.logger.WarnContext(ctx, "token holder is not an authorized admin", "email_hash", hash, "path", in.Path)
		return Decision{
			State:        domainauth.GateTokenNotAdmin,
			Redirect:     loginWithError(domainauth.ErrCodeAccessDenied),
			ClearCookies: true,
		}, nil
	}

	if age, ok := claims.Age(in.Now); !ok || age > domainauth.MaxSessionAge {
		g.logger.InfoContext(ctx, "session past absolute lifetime, forcing re-authentication", "email_hash", hash)
		return Decision{
			State:        domainauth.GateTokenExpiredByAge,
			Redirect:     loginWithError(domainauth.ErrCodeSessionExpired),
			ClearCookies: true,
		}, nil
	}

	d := Decision{
		State:   domainauth.GateAuthorized,
		Headers: make(map[string]string, len(securityHeaders)+1),
		Claims:  claims,
	}
	for k, v := range securityHeaders {
		d.Headers[k] = v
	}
	d.Headers[EmailHashHeader] = hash

	if NeedsReissue(claims, in.Now) {
		refreshed := g.mutator.Refresh(ctx, claims, in.Now)
		raw, encErr := g.codec.Encode(refreshed)
		if encErr != nil {
			return Decision{}, fmt.Errorf("re-issue token: %w", encErr)
		}
		d.Claims = refreshed
		d.Reissued = raw
	}
	return d, nil
}

func noTokenDecision(path string) Decision {
	q := url.Values{"callbackUrl": {path}}
	return Decision{
		State:    domainauth.GateNoToken,
		Redirect: LoginPath + "?" + q.Encode(),
	}
}

func errorDecision() Decision {
	return Decision{
		State:    domainauth.GateError,
		Redirect: loginWithError(domainauth.ErrCodeAuthError),
	}
}

func loginWithError(code string) string {
	return LoginPath + "?error=" + url.QueryEscape(code)
}
