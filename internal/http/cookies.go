package httpx

import (
	"net/http"
	"strings"
	"time"
)

// Session cookie names. Browsers only accept the __Secure- prefix over HTTPS,
// so the plain name is used on local http. Both are cleared on every denial.
const (
	SessionCookieName       = "session-token"
	SecureSessionCookieName = "__Secure-session-token"
)

// Temporary cookies used during the OAuth handshake.
const (
	oauthStateCookie    = "oauth_state"
	oauthNonceCookie    = "oauth_nonce"
	postLoginCookie     = "post_login_redirect"
	oauthCookieLifetime = 600 // 10 minutes
)

// CookieConfig controls attributes shared by every cookie we set.
type CookieConfig struct {
	Domain string
}

// isSecureRequest reports whether the request arrived over TLS, directly or
// through a proxy that sets X-Forwarded-Proto.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// sessionCookieNameFor picks the cookie name a token is written under.
func sessionCookieNameFor(r *http.Request) string {
	if isSecureRequest(r) {
		return SecureSessionCookieName
	}
	return SessionCookieName
}

// readSessionToken returns the raw session token, preferring the secure name.
func readSessionToken(r *http.Request) string {
	for _, name := range []string{SecureSessionCookieName, SessionCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// setSessionCookie writes the session token, expiring with the token itself.
func (c CookieConfig) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, maxAge time.Duration) {
	secs := int(maxAge.Seconds())
	if secs <= 0 {
		secs = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieNameFor(r),
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   secs,
	})
}

// clearSessionCookies deletes both session cookie names.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	c.clearCookie(w, r, SessionCookieName)
	c.clearCookie(w, r, SecureSessionCookieName)
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors the attributes used when setting cookies so browsers match it.
// The __Secure- name is always cleared with Secure set, as browsers require.
func (c CookieConfig) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r) || strings.HasPrefix(name, "__Secure-"),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect.
func (c CookieConfig) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	for name, value := range map[string]string{
		oauthStateCookie: p.State,
		oauthNonceCookie: p.Nonce,
		postLoginCookie:  p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   isSecureRequest(r),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   oauthCookieLifetime,
		})
	}
}

// clearOAuthCookies removes the handshake cookies.
func (c CookieConfig) clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	c.clearCookie(w, r, oauthStateCookie)
	c.clearCookie(w, r, oauthNonceCookie)
	c.clearCookie(w, r, postLoginCookie)
}

// postLoginRedirect returns the saved post-login destination, re-validated.
func postLoginRedirect(r *http.Request) string {
	if c, err := r.Cookie(postLoginCookie); err == nil {
		return safeRedirectPath(c.Value)
	}
	return "/"
}
