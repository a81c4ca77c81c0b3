package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/ifrugal/kb-admin/internal/clock"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/service"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// Logging writes one access-log line per request. The correlation id is taken
// from the inbound header or minted, and echoed on the response. The
// pseudonymous email hash set by the gate is included when present.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			sw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.statusCode()),
				slog.Int("bytes", sw.bytes),
				slog.Duration("duration", time.Since(start)),
			}
			if hash := w.Header().Get(service.EmailHashHeader); hash != "" {
				attrs = append(attrs, slog.String("email_hash", hash))
			}
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Recover turns a handler panic into a 500 JSON error and logs the stack.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "handler panic",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "internal_error",
					Err:     errors.New("internal server error"),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Gate is the request gate as the middleware uses it.
type Gate interface {
	Evaluate(ctx context.Context, in service.GateInput) service.Decision
}

// GateConfig groups dependencies for the RequireAdmin middleware.
type GateConfig struct {
	Gate    Gate
	Cookies CookieConfig
	Clock   clock.Clock
}

// RequireAdmin runs every request through the request gate. Denied requests
// are redirected to the login page; authorized ones get the security headers,
// a refreshed cookie when due, and the token claims in their context.
func RequireAdmin(cfg GateConfig) func(http.Handler) http.Handler {
	clk := clock.OrReal(cfg.Clock)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := cfg.Gate.Evaluate(r.Context(), service.GateInput{
				Path:  r.URL.Path,
				Token: readSessionToken(r),
				Now:   clk.Now(),
			})

			if d.ClearCookies {
				cfg.Cookies.clearSessionCookies(w, r)
			}
			if !d.Allowed() {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			if d.State == domainauth.GateBypass {
				next.ServeHTTP(w, r)
				return
			}

			for k, v := range d.Headers {
				w.Header().Set(k, v)
			}
			if d.Reissued != "" {
				cfg.Cookies.setSessionCookie(w, r, d.Reissued, d.Claims.ExpiresAt.Sub(clk.Now()))
			}
			next.ServeHTTP(w, r.WithContext(SetClaimsInContext(r.Context(), d.Claims)))
		})
	}
}
