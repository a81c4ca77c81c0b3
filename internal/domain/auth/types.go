// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import "time"

// ProviderGoogle is the identity provider name reported by the Google OIDC adapter.
const ProviderGoogle = "google"

// Session lifetime parameters. These are fixed and not configurable at runtime.
const (
	// MaxSessionAge is the absolute session lifetime measured from AuthTime.
	MaxSessionAge = 8 * time.Hour
	// TokenMaxAge is the cryptographic lifetime of a single issued token.
	// It slides forward on every refresh.
	TokenMaxAge = 8 * time.Hour
	// TokenUpdateAge is how old a token may get before the gate re-issues it.
	TokenUpdateAge = 15 * time.Minute
	// ClientRefetchInterval is how often the browser re-fetches the session.
	ClientRefetchInterval = 5 * time.Minute
)

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Account describes the IdP account the principal authenticated with.
type Account struct {
	Provider          string
	ProviderAccountID string
}

// Profile is the raw identity profile payload returned by the IdP.
// EmailVerified is nil when the provider did not send the flag at all.
type Profile struct {
	Email         string
	EmailVerified *bool
	HostedDomain  string
}

// SignInAttempt bundles everything the sign-in gate inspects.
type SignInAttempt struct {
	User    Identity
	Account Account
	Profile Profile
}

// Claims is the payload carried inside the signed session token.
// AuthTime is epoch milliseconds of the original authentication and never
// changes on refresh. IsAdmin is derived and recomputed on every refresh.
type Claims struct {
	TokenID   string
	Email     string
	Name      string
	Picture   string
	IsAdmin   bool
	AuthTime  int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasEmail reports whether the token carries an identity at all.
func (c Claims) HasEmail() bool { return c.Email != "" }

// AuthenticatedAt returns AuthTime as a time.Time. Zero when unset.
func (c Claims) AuthenticatedAt() time.Time {
	if c.AuthTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.AuthTime)
}

// Age returns how long ago the principal originally authenticated.
// A token without AuthTime is treated as infinitely old.
func (c Claims) Age(now time.Time) (time.Duration, bool) {
	if c.AuthTime == 0 {
		return 0, false
	}
	return now.Sub(time.UnixMilli(c.AuthTime)), true
}

// SessionUser is the client-visible user portion of a session.
type SessionUser struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	AuthTime int64  `json:"authTime"`
}

// Session is the read-only projection of a token exposed to the browser.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}
