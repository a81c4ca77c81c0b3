package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ifrugal/kb-admin/config"
	"github.com/ifrugal/kb-admin/internal/adapters/allowlist"
	"github.com/ifrugal/kb-admin/internal/adapters/devauth"
	"github.com/ifrugal/kb-admin/internal/adapters/jwtsession"
	"github.com/ifrugal/kb-admin/internal/adapters/oidc"
	redisadapter "github.com/ifrugal/kb-admin/internal/adapters/redis"
	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
	"github.com/ifrugal/kb-admin/internal/service"
	"github.com/redis/go-redis/v9"
)

// AuthDeps contains configuration for the auth pipeline.
type AuthDeps struct {
	Auth        config.AuthConfig
	Redis       config.RedisConfig
	RedisClient redis.UniversalClient // Optional: enables revocation and the Redis allow-list
	HTTPClient  *http.Client          // Optional: used for OIDC discovery and token exchange
	Clock       clock.Clock           // Optional
	Logger      *slog.Logger
}

// AuthComponents are the wired auth services the HTTP layer consumes.
type AuthComponents struct {
	Auth     *service.AuthService
	Gate     *service.RequestGate
	Sessions *service.SessionProjector
}

// BuildAuth wires the allow-list, sign-in gate, token pipeline, and request
// gate for the configured auth mode. Unlike optional features, auth has no
// disabled state: any missing piece is a startup error.
func BuildAuth(ctx context.Context, deps AuthDeps) (*AuthComponents, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	source, err := buildAllowlistSource(deps)
	if err != nil {
		return nil, err
	}
	authz, err := service.NewAuthorizer(service.AuthorizerOptions{Source: source, Logger: logger})
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(ctx, deps)
	if err != nil {
		return nil, err
	}

	revocations := buildRevocationStore(deps)
	codec, err := jwtsession.NewCodec(jwtsession.Options{
		Secret:  deps.Auth.SessionSecret,
		Issuer:  deps.Auth.SessionIssuer,
		Revoked: revocations,
		Clock:   deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	mutator, err := service.NewTokenMutator(authz)
	if err != nil {
		return nil, err
	}
	tokens := service.TokenDeps{Codec: codec, Mutator: mutator}

	signIn, err := service.NewSignInGate(service.SignInGateOptions{
		Authorizer:       authz,
		RequiredProvider: deps.Auth.RequiredProvider(),
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	sessions, err := service.NewSessionProjector(authz)
	if err != nil {
		return nil, err
	}

	authSvc, err := service.NewAuthService(service.AuthServiceOptions{
		Provider:    provider,
		SignIn:      signIn,
		Tokens:      tokens,
		Sessions:    sessions,
		Revocations: revocations,
		Clock:       deps.Clock,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	hasher := domainauth.NewEmailHasher(deps.Auth.EmailHashKey)
	gate, err := service.NewRequestGate(service.RequestGateOptions{
		Authorizer: authz,
		Tokens:     tokens,
		Hasher:     hasher,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "auth configured",
		"mode", deps.Auth.Mode,
		"provider", provider.Name(),
		"allowlist_source", deps.Auth.Allowlist.Source,
		"revocation", revocations != nil,
		"email_hash_keyed", hasher.Keyed(),
	)

	return &AuthComponents{Auth: authSvc, Gate: gate, Sessions: sessions}, nil
}

//nolint:ireturn // the source kind is selected by configuration.
func buildAllowlistSource(deps AuthDeps) (ports.AllowlistSource, error) {
	switch deps.Auth.Allowlist.Source {
	case config.AllowlistSourceRedis:
		if deps.RedisClient == nil {
			return nil, errors.New("redis allow-list selected but redis is not connected")
		}
		return allowlist.NewRedisSource(deps.RedisClient, deps.Auth.Allowlist.RedisKey), nil
	case config.AllowlistSourceEnv, "":
		return allowlist.NewEnvSource(deps.Auth.Allowlist.EnvVar, nil), nil
	default:
		return nil, fmt.Errorf("unsupported allow-list source %q", deps.Auth.Allowlist.Source)
	}
}

//nolint:ireturn // the provider is selected by configuration.
func buildProvider(ctx context.Context, deps AuthDeps) (ports.AuthProvider, error) {
	switch deps.Auth.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Email:      deps.Auth.DevAuth.Email,
			Name:       deps.Auth.DevAuth.Name,
			Unverified: deps.Auth.DevAuth.Unverified,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOAuth:
		g := deps.Auth.Google
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scope:        g.Scope,
			Issuer:       g.Issuer,
			HTTPClient:   deps.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("google oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", deps.Auth.Mode)
	}
}

// buildRevocationStore returns nil when Redis is not connected. The nil is
// returned untyped so optional checks on the interface hold.
//
//nolint:ireturn // optional dependency.
func buildRevocationStore(deps AuthDeps) ports.RevocationStore {
	if deps.RedisClient == nil {
		return nil
	}
	return redisadapter.NewRevocationStoreWithPrefix(deps.RedisClient, deps.Redis.RevocationPrefix)
}
