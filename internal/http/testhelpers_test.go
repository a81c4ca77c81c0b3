package httpx

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ifrugal/kb-admin/internal/adapters/jwtsession"
	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	authmocks "github.com/ifrugal/kb-admin/internal/mocks/auth"
	"github.com/ifrugal/kb-admin/internal/service"
	"github.com/ifrugal/kb-admin/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

// testApp is the full router wired with in-memory collaborators and a
// browser-like client that keeps cookies but does not follow redirects.
type testApp struct {
	server   *httptest.Server
	client   *http.Client
	list     *authmocks.MutableAllowlist
	provider *authmocks.MockAuthProvider
	revoked  *authmocks.MemoryRevocationStore
	clock    *clock.Fixed
}

func newTestApp(t *testing.T, allow, loginEmail string) *testApp {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	clk := clock.NewFixed(testutil.TestTime())
	list := authmocks.NewMutableAllowlist(allow)
	revoked := authmocks.NewMemoryRevocationStore()
	provider := authmocks.NewMockAuthProvider(loginEmail)

	authz := service.MustNewAuthorizer(service.AuthorizerOptions{Source: list, Logger: logger})
	codec, err := jwtsession.NewCodec(jwtsession.Options{Secret: testSessionSecret, Revoked: revoked, Clock: clk})
	require.NoError(t, err)
	mutator, err := service.NewTokenMutator(authz)
	require.NoError(t, err)
	signIn, err := service.NewSignInGate(service.SignInGateOptions{Authorizer: authz, Logger: logger})
	require.NoError(t, err)
	projector, err := service.NewSessionProjector(authz)
	require.NoError(t, err)
	tokens := service.TokenDeps{Codec: codec, Mutator: mutator}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Provider:    provider,
		SignIn:      signIn,
		Tokens:      tokens,
		Sessions:    projector,
		Revocations: revoked,
		Clock:       clk,
		Logger:      logger,
	})
	require.NoError(t, err)
	gate, err := service.NewRequestGate(service.RequestGateOptions{Authorizer: authz, Tokens: tokens, Logger: logger})
	require.NoError(t, err)

	router, err := NewRouter(RouterServices{
		Auth:     auth,
		Gate:     gate,
		Sessions: projector,
		Clock:    clk,
		Logger:   logger,
	})
	require.NoError(t, err)

	server := httptest.NewServer(Recover(logger)(Logging(logger)(router)))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{server: server, client: client, list: list, provider: provider, revoked: revoked, clock: clk}
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// cookie returns the value of the named cookie the client currently holds.
func (a *testApp) cookie(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// signIn runs the OAuth handshake against the mock provider and returns the
// callback response.
func (a *testApp) signIn(t *testing.T, callbackURL string) *http.Response {
	t.Helper()
	begin := a.get(t, "/api/auth/signin/"+domainauth.ProviderGoogle+"?callbackUrl="+url.QueryEscape(callbackURL))
	require.Equal(t, http.StatusFound, begin.StatusCode)
	state := a.cookie(t, oauthStateCookie)
	require.NotEmpty(t, state)
	return a.get(t, "/api/auth/callback/"+domainauth.ProviderGoogle+"?code=auth-code&state="+url.QueryEscape(state))
}
