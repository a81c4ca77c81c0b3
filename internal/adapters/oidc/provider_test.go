package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testClientID = "test-client"

// fakeIdP is a minimal OIDC issuer: discovery, JWKS, token and userinfo endpoints.
type fakeIdP struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	idClaims jwt.MapClaims
	userInfo map[string]any
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, discoveryDocument{
			Issuer:                idp.server.URL,
			AuthorizationEndpoint: idp.server.URL + "/auth",
			TokenEndpoint:         idp.server.URL + "/token",
			UserinfoEndpoint:      idp.server.URL + "/userinfo",
			JwksURI:               idp.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			writeTestJSON(w, map[string]string{"error": "invalid_grant"})
			return
		}
		writeTestJSON(w, map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idp.signIDToken(t),
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, idp.userInfo)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) signIDToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": f.server.URL,
		"aud": testClientID,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	for k, v := range f.idClaims {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "test-key"
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func createTestProvider(t *testing.T, idp *fakeIdP) *Provider {
	t.Helper()
	provider, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/api/auth/callback/google",
		Issuer:       idp.server.URL,
	})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_Success(t *testing.T) {
	idp := newFakeIdP(t)
	provider := createTestProvider(t, idp)

	assert.Equal(t, idp.server.URL+"/auth", provider.config.Endpoint.AuthURL)
	assert.Equal(t, idp.server.URL+"/token", provider.config.Endpoint.TokenURL)
	assert.Equal(t, []string{"openid", "email", "profile"}, provider.config.Scopes)
	assert.Equal(t, domainauth.ProviderGoogle, provider.Name())
}

func TestNewProvider_AcceptsDiscoveryURL(t *testing.T) {
	idp := newFakeIdP(t)
	provider, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/cb",
		Issuer:       idp.server.URL + "/.well-known/openid-configuration",
		Name:         "workspace",
	})
	require.NoError(t, err)
	assert.Equal(t, "workspace", provider.Name())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{ClientSecret: "secret", RedirectURL: "http://localhost/callback"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{ClientID: "client", RedirectURL: "http://localhost/callback"},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret"},
			errMsg: "redirect URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNormalizeIssuer(t *testing.T) {
	assert.Equal(t, GoogleIssuer, normalizeIssuer(""))
	assert.Equal(t, "https://idp.test", normalizeIssuer("https://idp.test/"))
	assert.Equal(t, "https://idp.test", normalizeIssuer("https://idp.test/.well-known/openid-configuration"))
}

func TestProvider_Begin(t *testing.T) {
	provider := createTestProvider(t, newFakeIdP(t))

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Len(t, state, 32)
	assert.Len(t, nonce, 32)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

func TestProvider_Begin_EmptyRedirectURL(t *testing.T) {
	provider := createTestProvider(t, newFakeIdP(t))

	_, _, _, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestProvider_Exchange_ValidationErrors(t *testing.T) {
	provider := createTestProvider(t, newFakeIdP(t))

	tests := []struct {
		name   string
		input  ports.ExchangeInput
		errMsg string
	}{
		{name: "missing code", input: ports.ExchangeInput{State: "state", Nonce: "nonce"}, errMsg: "authorization code is required"},
		{name: "missing state", input: ports.ExchangeInput{Code: "code", Nonce: "nonce"}, errMsg: "state is required"},
		{name: "missing nonce", input: ports.ExchangeInput{Code: "code", State: "state"}, errMsg: "nonce is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.Exchange(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Exchange_VerifiedGoogleAccount(t *testing.T) {
	idp := newFakeIdP(t)
	idp.idClaims = jwt.MapClaims{
		"sub":            "1234567890",
		"email":          "admin@example.com",
		"email_verified": true,
		"name":           "Ada Admin",
		"picture":        "https://img.example/ada.png",
		"hd":             "example.com",
		"nonce":          "nonce-1",
	}
	provider := createTestProvider(t, idp)

	attempt, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code: "good-code", State: "state-1", Nonce: "nonce-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", attempt.User.Email)
	assert.Equal(t, "Ada Admin", attempt.User.Name)
	assert.Equal(t, "https://img.example/ada.png", attempt.User.Picture)
	assert.Equal(t, domainauth.ProviderGoogle, attempt.Account.Provider)
	assert.Equal(t, "1234567890", attempt.Account.ProviderAccountID)
	require.NotNil(t, attempt.Profile.EmailVerified)
	assert.True(t, *attempt.Profile.EmailVerified)
	assert.Equal(t, "example.com", attempt.Profile.HostedDomain)
}

func TestProvider_Exchange_MissingEmailVerifiedStaysNil(t *testing.T) {
	idp := newFakeIdP(t)
	idp.idClaims = jwt.MapClaims{"sub": "s", "email": "a@example.com", "nonce": "n"}
	provider := createTestProvider(t, idp)

	attempt, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Nil(t, attempt.Profile.EmailVerified)
}

func TestProvider_Exchange_FallsBackToUserInfo(t *testing.T) {
	idp := newFakeIdP(t)
	idp.idClaims = jwt.MapClaims{"sub": "s-9", "nonce": "n"}
	idp.userInfo = map[string]any{
		"sub":            "s-9",
		"email":          "late@example.com",
		"email_verified": false,
		"name":           "Late Bloomer",
	}
	provider := createTestProvider(t, idp)

	attempt, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "late@example.com", attempt.User.Email)
	assert.Equal(t, "Late Bloomer", attempt.User.Name)
	require.NotNil(t, attempt.Profile.EmailVerified)
	assert.False(t, *attempt.Profile.EmailVerified)
}

func TestProvider_Exchange_NonceMismatch(t *testing.T) {
	idp := newFakeIdP(t)
	idp.idClaims = jwt.MapClaims{"sub": "s", "email": "a@example.com", "nonce": "other"}
	provider := createTestProvider(t, idp)

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid nonce")
}

func TestProvider_Exchange_TokenEndpointRejects(t *testing.T) {
	provider := createTestProvider(t, newFakeIdP(t))

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "bad-code", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange code for token")
}

func TestMergeClaims_KeepsExistingValues(t *testing.T) {
	verified := true
	dst := googleClaims{Sub: "keep", Email: "keep@example.com"}
	mergeClaims(&dst, googleClaims{Sub: "x", Email: "x@example.com", EmailVerified: &verified, Name: "Filled"})

	assert.Equal(t, "keep", dst.Sub)
	assert.Equal(t, "keep@example.com", dst.Email)
	assert.Equal(t, "Filled", dst.Name)
	require.NotNil(t, dst.EmailVerified)
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str1, 16)

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str2, 32)
	assert.NotEqual(t, str1, str2)

	empty, err := generateRandomString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id_token")

	_, err = getIDTokenFromToken(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil token")
}
