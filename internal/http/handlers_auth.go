package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	ProviderName() string
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	Session(ctx context.Context, raw string) (*service.SessionResult, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandlers provides HTTP handlers for the sign-in handshake, session
// reads and sign-out. Routes live under /api/auth so the request gate never
// intercepts them.
type AuthHandlers struct {
	Svc     AuthServiceInterface
	Cookies CookieConfig
	Clock   clock.Clock
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) now() clock.Clock { return clock.OrReal(h.Clock) }

func (h *AuthHandlers) providerMatches(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("provider") == h.Svc.ProviderName() {
		return true
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusNotFound,
		ErrCode: "unknown_provider",
		Err:     errors.New("unknown auth provider"),
	})
	return false
}

// SignIn starts the OAuth handshake.
// GET /api/auth/signin/{provider}?callbackUrl=<optional_redirect>.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	if !h.providerMatches(w, r) {
		return
	}
	redirectURI := safeRedirectPath(r.URL.Query().Get("callbackUrl"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	h.Cookies.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the OAuth handshake and issues the session cookie.
// GET /api/auth/callback/{provider}?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.providerMatches(w, r) {
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	redirectURI := postLoginRedirect(r)
	h.Cookies.clearOAuthCookies(w, r)

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		var denied *service.SignInDeniedError
		if errors.As(err, &denied) {
			http.Redirect(w, r, loginErrorURL(domainauth.ErrCodeAccessDenied), http.StatusFound)
			return
		}
		h.logger().ErrorContext(r.Context(), "login completion failed", "error", err)
		http.Redirect(w, r, loginErrorURL(domainauth.ErrCodeAuthError), http.StatusFound)
		return
	}

	h.Cookies.setSessionCookie(w, r, result.Token, result.Claims.ExpiresAt.Sub(h.now().Now()))
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// SignOut revokes the session token and clears the session cookies.
// POST /api/auth/signout (CSRF-protected).
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := readSessionToken(r); token != "" {
		if err := h.Svc.Logout(r.Context(), token); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.Cookies.clearSessionCookies(w, r)

	redirectURI := r.FormValue("callbackUrl")
	if redirectURI == "" {
		redirectURI = service.LoginPath
	}
	redirectURI = safeRedirectPath(redirectURI)

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"url": redirectURI})
		return
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Session returns the client-visible session and re-issues the token.
// GET /api/auth/session. An absent or unusable token yields {}.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	res, err := h.Svc.Session(r.Context(), readSessionToken(r))
	switch {
	case err == nil:
		h.Cookies.setSessionCookie(w, r, res.Token, res.Session.Expires.Sub(h.now().Now()))
		WriteJSON(w, http.StatusOK, res.Session)
	case errors.Is(err, service.ErrNoSession):
		WriteJSON(w, http.StatusOK, struct{}{})
	case errors.Is(err, service.ErrSessionExpired):
		h.Cookies.clearSessionCookies(w, r)
		WriteJSON(w, http.StatusOK, struct{}{})
	case errors.Is(err, service.ErrNotAuthorized), errors.Is(err, service.ErrNoEmail):
		h.Cookies.clearSessionCookies(w, r)
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: domainauth.ErrCodeAccessDenied,
			Err:     err,
		})
	default:
		h.logger().ErrorContext(r.Context(), "session lookup failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "session_failed",
			Err:     errors.New("session lookup failed"),
		})
	}
}

// CSRF returns the double-submit token forms must echo back.
// GET /api/auth/csrf.
func (h *AuthHandlers) CSRF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": GetCSRFToken(r)})
}

func loginErrorURL(code string) string {
	return service.LoginPath + "?" + url.Values{"error": {code}}.Encode()
}
