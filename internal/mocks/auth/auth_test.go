package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockAuthProvider("ops@co.com")
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/api/auth/callback/google"}
	authURL, state, nonce, err := provider.Begin(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state2, nonce2, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_Exchange(t *testing.T) {
	provider := NewMockAuthProvider("ops@co.com")

	attempt, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "ops@co.com", attempt.User.Email)
	assert.Equal(t, domainauth.ProviderGoogle, attempt.Account.Provider)
	require.NotNil(t, attempt.Profile.EmailVerified)
	assert.True(t, *attempt.Profile.EmailVerified)

	_, err = provider.Exchange(context.Background(), ports.ExchangeInput{})
	require.Error(t, err)
}

func TestMutableAllowlist(t *testing.T) {
	al := NewMutableAllowlist("ops@co.com")
	ctx := context.Background()

	got, err := al.Allowlist(ctx)
	require.NoError(t, err)
	assert.True(t, got.Contains("ops@co.com"))

	al.Set("")
	got, err = al.Allowlist(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())

	al.Fail(errors.New("boom"))
	_, err = al.Allowlist(ctx)
	require.Error(t, err)
}

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
	revoked, err = store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.Error(t, store.Revoke(ctx, "", time.Now()))
}

func TestMemoryTokenCodec(t *testing.T) {
	revoked := NewMemoryRevocationStore()
	codec := NewMemoryTokenCodec()
	codec.Revoked = revoked
	ctx := context.Background()

	raw, err := codec.Encode(domainauth.Claims{TokenID: "jti-1", Email: "a@example.com"})
	require.NoError(t, err)

	got, err := codec.Decode(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = codec.Decode(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownToken)

	require.NoError(t, revoked.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	_, err = codec.Decode(ctx, raw)
	require.Error(t, err)
}
