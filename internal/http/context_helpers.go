package httpx

import (
	"context"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// claimsKey is an unexported context key type to avoid collisions across packages.
type claimsKey struct{}

// SetClaimsInContext returns a child context that carries the gate-approved claims.
func SetClaimsInContext(ctx context.Context, c domainauth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetClaimsFromContext returns the claims stored by RequireAdmin and a boolean indicating presence.
func GetClaimsFromContext(ctx context.Context) (domainauth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(domainauth.Claims)
	if !ok || !c.HasEmail() {
		return domainauth.Claims{}, false
	}
	return c, true
}
