// Package allowlist provides AllowlistSource adapters. Every source re-reads
// its backing store on each call so configuration changes apply without a restart.
package allowlist

import (
	"context"
	"os"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

// DefaultEnvVar is the environment variable holding the comma-separated admin emails.
const DefaultEnvVar = "ALLOWED_ADMIN_EMAILS"

// EnvSource reads the allow-list from an environment variable on every call.
type EnvSource struct {
	name   string
	lookup func(string) (string, bool)
}

// NewEnvSource returns a source bound to the named variable. An empty name
// selects DefaultEnvVar. lookup may be nil, in which case os.LookupEnv is used.
func NewEnvSource(name string, lookup func(string) (string, bool)) *EnvSource {
	if name == "" {
		name = DefaultEnvVar
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvSource{name: name, lookup: lookup}
}

// Allowlist parses the current value of the variable. Unset and empty both
// yield an empty list.
func (s *EnvSource) Allowlist(_ context.Context) (domainauth.Allowlist, error) {
	raw, _ := s.lookup(s.name)
	return domainauth.ParseAllowlist(raw), nil
}

// Static is a fixed allow-list, used in dev mode and tests.
type Static []string

// Allowlist returns the normalized entries.
func (s Static) Allowlist(_ context.Context) (domainauth.Allowlist, error) {
	return domainauth.NewAllowlist(s), nil
}
