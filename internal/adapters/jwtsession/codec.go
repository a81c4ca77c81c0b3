// Package jwtsession encodes session claims as HS256-signed JWTs carried in the session cookie.
package jwtsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

// MinSecretLength is the minimum accepted signing secret length in bytes.
const MinSecretLength = 32

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, or expired.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevoked is returned when a token id has been signed out.
	ErrRevoked = errors.New("session token revoked")
)

// tokenClaims is the wire shape of the session token.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	AuthTime int64  `json:"authTime,omitempty"`
}

// Options configures a Codec.
type Options struct {
	Secret  string
	Issuer  string
	Revoked ports.RevocationStore // optional
	Clock   clock.Clock           // optional
}

// Codec signs and verifies session tokens.
type Codec struct {
	secret  []byte
	issuer  string
	revoked ports.RevocationStore
	clock   clock.Clock
}

// NewCodec validates opts and returns a Codec.
func NewCodec(opts Options) (*Codec, error) {
	if len(opts.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	return &Codec{
		secret:  []byte(opts.Secret),
		issuer:  opts.Issuer,
		revoked: opts.Revoked,
		clock:   clock.OrReal(opts.Clock),
	}, nil
}

// Encode signs claims. ExpiresAt and IssuedAt must be set by the caller.
func (c *Codec) Encode(claims domainauth.Claims) (string, error) {
	if claims.ExpiresAt.IsZero() {
		return "", errors.New("token expiry is required")
	}
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.TokenID,
			Subject:   claims.Email,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		IsAdmin:  claims.IsAdmin,
		AuthTime: claims.AuthTime,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, expiry and issuer, then checks the revocation
// store. A revocation lookup failure is reported as revoked.
func (c *Codec) Decode(ctx context.Context, raw string) (domainauth.Claims, error) {
	if raw == "" {
		return domainauth.Claims{}, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}

	var tc tokenClaims
	tok, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, parserOpts...)
	if err != nil || !tok.Valid {
		return domainauth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.revoked != nil && tc.ID != "" {
		revoked, rerr := c.revoked.IsRevoked(ctx, tc.ID)
		if rerr != nil {
			return domainauth.Claims{}, errors.Join(ErrRevoked, fmt.Errorf("revocation lookup: %w", rerr))
		}
		if revoked {
			return domainauth.Claims{}, ErrRevoked
		}
	}

	return toDomain(tc), nil
}

func toDomain(tc tokenClaims) domainauth.Claims {
	out := domainauth.Claims{
		TokenID:  tc.ID,
		Email:    tc.Email,
		Name:     tc.Name,
		Picture:  tc.Picture,
		IsAdmin:  tc.IsAdmin,
		AuthTime: tc.AuthTime,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	return out
}
