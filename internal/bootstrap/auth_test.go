package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifrugal/kb-admin/config"
	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/service"
	"github.com/ifrugal/kb-admin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockAuthConfig(envVar string) config.AuthConfig {
	return config.AuthConfig{
		Mode:          config.AuthModeMock,
		DevAuth:       config.DevAuthConfig{Email: "dev@example.com", Name: "Dev"},
		SessionSecret: testSecret,
		SessionIssuer: "kb-admin",
		Allowlist:     config.AllowlistConfig{Source: config.AllowlistSourceEnv, EnvVar: envVar},
	}
}

func TestBuildAuth_MockModeSignsInAllowlistedDevUser(t *testing.T) {
	t.Setenv("KB_TEST_ADMINS", "Dev@Example.com")
	ctx := context.Background()
	clk := clock.NewFixed(testutil.TestTime())

	comps, err := BuildAuth(ctx, AuthDeps{Auth: mockAuthConfig("KB_TEST_ADMINS"), Clock: clk, Logger: testLogger()})
	require.NoError(t, err)
	require.NotNil(t, comps.Auth)
	require.NotNil(t, comps.Gate)
	require.NotNil(t, comps.Sessions)
	assert.Equal(t, "dev", comps.Auth.ProviderName())

	begin, err := comps.Auth.BeginLogin(ctx, "/")
	require.NoError(t, err)

	res, err := comps.Auth.CompleteLogin(ctx, service.CompleteLoginInput{Code: "dev", State: begin.State, Nonce: begin.Nonce})
	require.NoError(t, err)
	assert.True(t, res.Claims.IsAdmin)

	d := comps.Gate.Evaluate(ctx, service.GateInput{Path: "/", Token: res.Token, Now: clk.Now()})
	assert.Equal(t, domainauth.GateAuthorized, d.State)
}

func TestBuildAuth_AllowlistReadPerCall(t *testing.T) {
	t.Setenv("KB_TEST_ADMINS", "")
	ctx := context.Background()
	clk := clock.NewFixed(testutil.TestTime())

	comps, err := BuildAuth(ctx, AuthDeps{Auth: mockAuthConfig("KB_TEST_ADMINS"), Clock: clk, Logger: testLogger()})
	require.NoError(t, err)

	begin, err := comps.Auth.BeginLogin(ctx, "/")
	require.NoError(t, err)
	_, err = comps.Auth.CompleteLogin(ctx, service.CompleteLoginInput{Code: "dev", State: begin.State, Nonce: begin.Nonce})
	require.Error(t, err, "empty allow-list denies everyone")

	t.Setenv("KB_TEST_ADMINS", "dev@example.com")
	_, err = comps.Auth.CompleteLogin(ctx, service.CompleteLoginInput{Code: "dev", State: begin.State, Nonce: begin.Nonce})
	require.NoError(t, err, "allow-list edits apply without rebuilding")
}

func TestBuildAuth_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("redis allow-list without redis", func(t *testing.T) {
		cfg := mockAuthConfig("")
		cfg.Allowlist.Source = config.AllowlistSourceRedis
		_, err := BuildAuth(ctx, AuthDeps{Auth: cfg, Logger: testLogger()})
		require.Error(t, err)
	})

	t.Run("short session secret", func(t *testing.T) {
		cfg := mockAuthConfig("")
		cfg.SessionSecret = "short"
		_, err := BuildAuth(ctx, AuthDeps{Auth: cfg, Logger: testLogger()})
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := mockAuthConfig("")
		cfg.Mode = "saml"
		_, err := BuildAuth(ctx, AuthDeps{Auth: cfg, Logger: testLogger()})
		require.Error(t, err)
	})

	t.Run("oauth issuer unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		cfg := mockAuthConfig("")
		cfg.Mode = config.AuthModeOAuth
		cfg.Google = config.GoogleConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/api/auth/callback/google",
			Issuer:       srv.URL,
		}
		_, err := BuildAuth(ctx, AuthDeps{Auth: cfg, HTTPClient: srv.Client(), Logger: testLogger()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "google oidc provider")
	})
}

func TestBuildRevocationStore_NilWithoutRedis(t *testing.T) {
	assert.Nil(t, buildRevocationStore(AuthDeps{}))
}

func TestBuildAuth_RedisAllowlist(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()
	key := "kb-admin:test-admins"
	require.NoError(t, client.SAdd(ctx, key, "dev@example.com").Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	cfg := mockAuthConfig("")
	cfg.Allowlist = config.AllowlistConfig{Source: config.AllowlistSourceRedis, RedisKey: key}
	// Revocation TTLs are measured against the wall clock, so this test runs on it too.
	comps, err := BuildAuth(ctx, AuthDeps{
		Auth:        cfg,
		Redis:       config.RedisConfig{RevocationPrefix: "kb-admin-test-revoked:"},
		RedisClient: client,
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	begin, err := comps.Auth.BeginLogin(ctx, "/")
	require.NoError(t, err)
	res, err := comps.Auth.CompleteLogin(ctx, service.CompleteLoginInput{Code: "dev", State: begin.State, Nonce: begin.Nonce})
	require.NoError(t, err)

	require.NoError(t, comps.Auth.Logout(ctx, res.Token))
	d := comps.Gate.Evaluate(ctx, service.GateInput{Path: "/", Token: res.Token, Now: time.Now()})
	assert.Equal(t, domainauth.GateNoToken, d.State, "revoked token must not pass the gate")
}
