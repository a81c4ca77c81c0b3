package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// loginMessages maps ?error= codes to what the login page shows.
var loginMessages = map[string]string{
	domainauth.ErrCodeNoEmail:        "Your account did not share an email address. Sign in with an account that does.",
	domainauth.ErrCodeAccessDenied:   "This account is not authorized to use the admin panel.",
	domainauth.ErrCodeSessionExpired: "Your session has expired. Please sign in again.",
	domainauth.ErrCodeAuthError:      "We could not verify your session. Please sign in again.",
}

const genericLoginError = "Sign-in failed. Please try again."

// LoginMessage returns the user-facing text for an error code. Empty code, empty text.
func LoginMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := loginMessages[code]; ok {
		return msg
	}
	return genericLoginError
}

// SessionProjector is the read side of the session used by the landing page and /api/me.
type SessionProjector interface {
	Project(ctx context.Context, c domainauth.Claims) (domainauth.Session, error)
}

// PageHandlers serves the login page and the protected landing routes.
type PageHandlers struct {
	Renderer     *TemplateRenderer
	Sessions     SessionProjector
	ProviderName string
}

type loginPageData struct {
	ErrorCode    string
	ErrorMessage string
	SignInURL    string
	SignInLabel  string
}

// Login renders the sign-in page.
// GET /login?error=<code>&callbackUrl=<path>.
func (h *PageHandlers) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("error")
	signIn := url.URL{
		Path:     "/api/auth/signin/" + h.ProviderName,
		RawQuery: url.Values{"callbackUrl": {safeRedirectPath(q.Get("callbackUrl"))}}.Encode(),
	}

	label := "Sign in with Google"
	if h.ProviderName != domainauth.ProviderGoogle {
		label = "Sign in (" + h.ProviderName + ")"
	}

	_ = h.Renderer.Render(w, http.StatusOK, "login.html", loginPageData{
		ErrorCode:    code,
		ErrorMessage: LoginMessage(code),
		SignInURL:    signIn.String(),
		SignInLabel:  label,
	})
}

type adminPageData struct {
	User          domainauth.SessionUser
	DisplayName   string
	Expires       time.Time
	CSRFToken     string
	RefetchMillis int64
}

// session projects the gate-approved claims. ok is false when the response
// has already been written.
func (h *PageHandlers) session(w http.ResponseWriter, r *http.Request) (domainauth.Session, bool) {
	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return domainauth.Session{}, false
	}
	sess, err := h.Sessions.Project(r.Context(), claims)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: domainauth.ErrCodeAccessDenied,
			Err:     err,
		})
		return domainauth.Session{}, false
	}
	return sess, true
}

// Home renders the admin landing page.
// GET /.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	name := sess.User.Name
	if name == "" {
		name = sess.User.Email
	}
	_ = h.Renderer.Render(w, http.StatusOK, "admin.html", adminPageData{
		User:          sess.User,
		DisplayName:   name,
		Expires:       sess.Expires,
		CSRFToken:     GetCSRFToken(r),
		RefetchMillis: domainauth.ClientRefetchInterval.Milliseconds(),
	})
}

// Me returns the current admin's session as JSON.
// GET /api/me.
func (h *PageHandlers) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}
