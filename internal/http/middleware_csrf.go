package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultCSRFCookieName is the cookie the double-submit token lives in.
	DefaultCSRFCookieName = "csrf-token"
	// DefaultCSRFHeaderName is the header AJAX callers echo the token in.
	DefaultCSRFHeaderName = "X-Csrf-Token"
	// DefaultCSRFFormField is the form field sign-out forms submit the token in.
	DefaultCSRFFormField = "csrfToken"
	// DefaultCSRFTokenLength is the number of random bytes per token.
	DefaultCSRFTokenLength = 32

	csrfCookieLifetime = 8 * time.Hour
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	CookieName    string
	HeaderName    string
	FormFieldName string
	CookieDomain  string
	TokenLength   int
}

type csrfGuard struct {
	cookie    string
	header    string
	field     string
	domain    string
	tokenSize int
}

func newCSRFGuard(cfg CSRFConfig) csrfGuard {
	g := csrfGuard{
		cookie:    cfg.CookieName,
		header:    cfg.HeaderName,
		field:     cfg.FormFieldName,
		domain:    cfg.CookieDomain,
		tokenSize: cfg.TokenLength,
	}
	if g.cookie == "" {
		g.cookie = DefaultCSRFCookieName
	}
	if g.header == "" {
		g.header = DefaultCSRFHeaderName
	}
	if g.field == "" {
		g.field = DefaultCSRFFormField
	}
	if g.tokenSize <= 0 {
		g.tokenSize = DefaultCSRFTokenLength
	}
	return g
}

// CSRFProtection guards state-changing requests with a double-submit cookie.
// Every request gets a token in its context (issued on first visit); unsafe
// methods must echo it back in the header or the form field.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := newCSRFGuard(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.ensureToken(w, r)
			if err != nil {
				http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if !isSafeMethod(r.Method) && !tokensMatch(g.submitted(r), token) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "csrf_failed",
					Err:     errors.New("CSRF token validation failed"),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ensureToken returns the browser's existing token or issues a new one.
func (g csrfGuard) ensureToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	b := make([]byte, g.tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:   g.cookie,
		Value:  token,
		Path:   "/",
		Domain: g.domain,
		// The admin page script reads it to fill the header.
		HttpOnly: false,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfCookieLifetime / time.Second),
	})
	return token, nil
}

// submitted returns the token the client echoed. JSON bodies are never read.
func (g csrfGuard) submitted(r *http.Request) string {
	if v := r.Header.Get(g.header); v != "" {
		return v
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") &&
		!strings.HasPrefix(ct, "multipart/form-data") {
		return ""
	}
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.FormValue(g.field)
}

func tokensMatch(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

type csrfTokenKey struct{}

// GetCSRFToken returns the token CSRFProtection placed in the request context.
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
