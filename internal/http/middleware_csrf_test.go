package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func csrfCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	resp := rec.Result()
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	return nil
}

// issueCSRFToken performs a safe request and returns the token it was handed.
func issueCSRFToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := csrfCookieFrom(t, rec)
	require.NotNil(t, c, "CSRF cookie not set")
	require.NotEmpty(t, c.Value)
	return c.Value
}

func TestCSRFProtection_SafeMethodsExempt(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, "/api/auth/session", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestCSRFProtection_SignOutWithoutTokenFails(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "csrf_failed")
}

func TestCSRFProtection_HeaderToken(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())
	token := issueCSRFToken(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	req.Header.Set(DefaultCSRFHeaderName, token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFProtection_FormToken(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())
	token := issueCSRFToken(t, h)

	form := url.Values{DefaultCSRFFormField: {token}, "callbackUrl": {"/login"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFProtection_MismatchedToken(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "cookie-token"})
	req.Header.Set(DefaultCSRFHeaderName, "different-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFProtection_JSONBodyIgnored(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())
	token := issueCSRFToken(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", strings.NewReader(`{"csrfToken":"`+token+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFProtection_TokenInContext(t *testing.T) {
	var captured string
	h := CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCSRFToken(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	c := csrfCookieFrom(t, rec)
	require.NotNil(t, c)
	assert.NotEmpty(t, captured)
	assert.Equal(t, c.Value, captured)
}

func TestCSRFProtection_CookieAttributes(t *testing.T) {
	h := CSRFProtection(CSRFConfig{CookieDomain: "admin.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "http://admin.example.com/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	c := csrfCookieFrom(t, rec)
	require.NotNil(t, c)
	assert.True(t, c.Secure)
	assert.False(t, c.HttpOnly, "admin page script reads the token")
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "admin.example.com", c.Domain)
	assert.Equal(t, "/", c.Path)
}

func TestCSRFProtection_CookieNotReissued(t *testing.T) {
	h := CSRFProtection(CSRFConfig{})(okHandler())
	token := issueCSRFToken(t, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Nil(t, csrfCookieFrom(t, rec))
}
