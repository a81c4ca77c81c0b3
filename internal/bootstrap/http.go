package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ifrugal/kb-admin/config"
	httpx "github.com/ifrugal/kb-admin/internal/http"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Auth        *AuthComponents
	RedisClient redis.UniversalClient // Optional: reported by /healthz
	Logger      *slog.Logger
}

// NewHTTPServer builds the server and its handler chain without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil || cfg.Auth == nil {
		return nil, errors.New("http server config requires app config and auth components")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := buildHTTPHandler(cfg, logger)
	if err != nil {
		return nil, err
	}

	addr := cfg.Config.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

// buildHTTPHandler applies the outer middleware.
// Order: Recover -> Logging -> Router (gate, CSRF, mux).
func buildHTTPHandler(cfg *HTTPServerConfig, logger *slog.Logger) (http.Handler, error) {
	services := httpx.RouterServices{
		Auth:         cfg.Auth.Auth,
		Gate:         cfg.Auth.Gate,
		Sessions:     cfg.Auth.Sessions,
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		Logger:       logger,
	}
	if cfg.RedisClient != nil {
		client := cfg.RedisClient
		services.HealthChecks = map[string]httpx.HealthCheck{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}
	}

	router, err := httpx.NewRouter(services)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)
	return h, nil
}

// RunHTTPServer serves until ctx is cancelled or the listener fails, then
// drains in-flight requests for at most shutdownTimeout.
func RunHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return errors.New("http server is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Server:  server,
			Timeout: shutdownTimeout,
			Logger:  logger,
		})
	})
	return g.Wait()
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// The parent context is already cancelled here; shutdown gets a fresh deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
