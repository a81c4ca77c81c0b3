package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"

	kbadmin "github.com/ifrugal/kb-admin"
	"github.com/ifrugal/kb-admin/internal/clock"
	"github.com/ifrugal/kb-admin/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Gate         *service.RequestGate
	Sessions     *service.SessionProjector
	CookieDomain string
	HealthChecks map[string]HealthCheck // Optional: reported by /healthz
	Clock        clock.Clock            // Optional: defaults to the wall clock
	Logger       *slog.Logger           // Optional
}

// NewRouter creates the HTTP router. Every request passes the request gate
// first; public routes are recognised by the gate itself.
// Order: RequireAdmin -> CSRFProtection -> mux.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookies := CookieConfig{Domain: services.CookieDomain}

	templates, err := fs.Sub(kbadmin.TemplateFS, "web/templates")
	if err != nil {
		return nil, err
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templates, Logger: logger})
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(kbadmin.StaticFS, "web/static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerAuthRoutes(mux, &AuthHandlers{
		Svc:     services.Auth,
		Cookies: cookies,
		Clock:   services.Clock,
		Logger:  logger,
	})
	registerPageRoutes(mux, &PageHandlers{
		Renderer:     renderer,
		Sessions:     services.Sessions,
		ProviderName: services.Auth.ProviderName(),
	})
	mux.Handle("GET /static/", staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServerFS(static))))
	health := &HealthHandler{Checks: services.HealthChecks, Logger: logger}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	var h http.Handler = mux
	h = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(h)
	h = RequireAdmin(GateConfig{Gate: services.Gate, Cookies: cookies, Clock: services.Clock})(h)
	return h, nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /api/auth/signin/{provider}", h.SignIn)
	mux.HandleFunc("GET /api/auth/callback/{provider}", h.Callback)
	mux.HandleFunc("POST /api/auth/signout", h.SignOut)
	mux.HandleFunc("GET /api/auth/session", h.Session)
	mux.HandleFunc("GET /api/auth/csrf", h.CSRF)
}

func registerPageRoutes(mux *http.ServeMux, h *PageHandlers) {
	mux.HandleFunc("GET /login", h.Login)
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /api/me", h.Me)
}

// staticWithCacheHeaders lets browsers cache assets briefly; they are not content-hashed.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		handler.ServeHTTP(w, r)
	})
}
