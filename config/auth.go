package config

import (
	"errors"
	"fmt"
	"strings"
)

// MinSessionSecretLength is the shortest accepted session signing secret.
const MinSessionSecretLength = 32

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses Google OpenID Connect for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// AllowlistSourceKind selects where the admin allow-list is read from.
type AllowlistSourceKind string

const (
	// AllowlistSourceEnv reads ALLOWED_ADMIN_EMAILS from the process environment.
	AllowlistSourceEnv AllowlistSourceKind = "env"
	// AllowlistSourceRedis reads the members of a Redis set.
	AllowlistSourceRedis AllowlistSourceKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for AllowlistSourceKind.
func (k *AllowlistSourceKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "env", "redis":
		*k = AllowlistSourceKind(v)
		return nil
	default:
		return fmt.Errorf("invalid AllowlistSource: %q (valid options: env, redis)", v)
	}
}

// GoogleConfig contains the Google OAuth client registration.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/api/auth/callback/google"`
	Scope        string `env:"SCOPE"         envDefault:"openid email profile"`
	// Issuer accepts either the issuer URL or its discovery document URL.
	Issuer string `env:"ISSUER" envDefault:"https://accounts.google.com"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Email string `env:"EMAIL" envDefault:"dev@example.com"`
	Name  string `env:"NAME"  envDefault:"Dev Admin"`
	// Unverified makes the dev provider report email_verified=false.
	Unverified bool `env:"UNVERIFIED" envDefault:"false"`
}

// AllowlistConfig selects the allow-list backend. The list contents are not
// configuration: they are read on every check.
type AllowlistConfig struct {
	Source   AllowlistSourceKind `env:"ALLOWLIST_SOURCE"    envDefault:"env"`
	EnvVar   string              `env:"ALLOWLIST_ENV_VAR"   envDefault:"ALLOWED_ADMIN_EMAILS"`
	RedisKey string              `env:"ALLOWLIST_REDIS_KEY" envDefault:"kb-admin:allowed-admins"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// Google configuration (used when Mode=oauth).
	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionSecret signs session tokens (HS256). At least 32 bytes.
	SessionSecret string `env:"SESSION_SECRET"`

	// SessionIssuer is stamped into the iss claim of session tokens.
	SessionIssuer string `env:"SESSION_ISSUER" envDefault:"kb-admin"`

	// EmailHashKey turns the X-User-Email-Hash header into a keyed HMAC.
	// Empty keeps the unkeyed 32-bit string hash.
	EmailHashKey string `env:"EMAIL_HASH_KEY"`

	Allowlist AllowlistConfig
}

// Sanitize trims values commonly pasted with stray whitespace.
func (a *AuthConfig) Sanitize() {
	a.Google.ClientID = strings.TrimSpace(a.Google.ClientID)
	a.Google.ClientSecret = strings.TrimSpace(a.Google.ClientSecret)
	a.Google.RedirectURL = strings.TrimSpace(a.Google.RedirectURL)
	a.Allowlist.EnvVar = strings.TrimSpace(a.Allowlist.EnvVar)
	a.Allowlist.RedisKey = strings.TrimSpace(a.Allowlist.RedisKey)
	if a.Allowlist.Source == "" {
		a.Allowlist.Source = AllowlistSourceEnv
	}
}

// Validate checks the auth settings for the selected mode.
// Mock mode is refused outside development.
func (a *AuthConfig) Validate(isDev bool) error {
	var errs []error
	switch a.Mode {
	case AuthModeOAuth:
		if a.Google.ClientID == "" {
			errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required when AUTH_MODE=oauth"))
		}
		if a.Google.ClientSecret == "" {
			errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is required when AUTH_MODE=oauth"))
		}
		if a.Google.RedirectURL == "" {
			errs = append(errs, errors.New("GOOGLE_REDIRECT_URL is required when AUTH_MODE=oauth"))
		}
	case AuthModeMock:
		if !isDev {
			errs = append(errs, errors.New("AUTH_MODE=mock is only allowed with DEV=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_MODE %q", a.Mode))
	}
	if len(a.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength))
	}
	return errors.Join(errs...)
}

// RequiredProvider is the provider id sign-ins must come from in this mode.
func (a *AuthConfig) RequiredProvider() string {
	if a.Mode == AuthModeMock {
		return "dev"
	}
	return "google"
}
