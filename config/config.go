package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: sign-in, session token and allow-list configuration
//   - redis.go: Redis connection used for revocation and the Redis allow-list
//   - http.go: HTTP server configuration
//
// The admin allow-list itself (ALLOWED_ADMIN_EMAILS) is deliberately not part
// of this struct. It is read on every authorization check so edits take
// effect without a restart.
type AppConfig struct {
	// IsDev controls development mode behavior (debug logging, full emails in audit logs).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Redis configuration
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Redis.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports configuration combinations the service cannot start with.
// All problems are returned together.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Auth.Validate(c.IsDev); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.Allowlist.Source == AllowlistSourceRedis && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("ALLOWLIST_SOURCE=%s requires REDIS_ENABLED=true", AllowlistSourceRedis))
	}
	return errors.Join(errs...)
}
