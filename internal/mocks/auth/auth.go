// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider    = (*MockAuthProvider)(nil)
	_ ports.AllowlistSource = (*MutableAllowlist)(nil)
	_ ports.RevocationStore = (*MemoryRevocationStore)(nil)
	_ ports.TokenCodec      = (*MemoryTokenCodec)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.SignInAttempt, error)

	// Deterministic values for predictable testing
	ProviderName string
	AuthURL      string
	StatePrefix  string
	NoncePrefix  string
	Attempt      domainauth.SignInAttempt

	mu        sync.Mutex
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider returning a verified Google login for email.
func NewMockAuthProvider(email string) *MockAuthProvider {
	verified := true
	return &MockAuthProvider{
		ProviderName: domainauth.ProviderGoogle,
		AuthURL:      "https://mock-idp/auth",
		StatePrefix:  "state",
		NoncePrefix:  "nonce",
		Attempt: domainauth.SignInAttempt{
			User:    domainauth.Identity{Subject: "sub-1", Email: email, Name: "Mock User"},
			Account: domainauth.Account{Provider: domainauth.ProviderGoogle, ProviderAccountID: "sub-1"},
			Profile: domainauth.Profile{Email: email, EmailVerified: &verified},
		},
	}
}

func (m *MockAuthProvider) Name() string {
	if m.ProviderName == "" {
		return domainauth.ProviderGoogle
	}
	return m.ProviderName
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, n), fmt.Sprintf("%s-%d", noncePrefix, n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.SignInAttempt, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return domainauth.SignInAttempt{}, errors.New("authorization code is required")
	}
	return m.Attempt, nil
}

// MutableAllowlist is an in-memory allow-list whose contents tests can change
// between requests to simulate configuration edits.
type MutableAllowlist struct {
	mu  sync.Mutex
	raw string
	err error
}

// NewMutableAllowlist creates a list from a comma-separated value.
func NewMutableAllowlist(raw string) *MutableAllowlist {
	return &MutableAllowlist{raw: raw}
}

// Set replaces the configured value.
func (m *MutableAllowlist) Set(raw string) {
	m.mu.Lock()
	m.raw = raw
	m.mu.Unlock()
}

// Fail makes subsequent reads return err (nil clears it).
func (m *MutableAllowlist) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MutableAllowlist) Allowlist(_ context.Context) (domainauth.Allowlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domainauth.Allowlist{}, m.err
	}
	return domainauth.ParseAllowlist(m.raw), nil
}

// MemoryRevocationStore is an in-memory revocation store for unit tests.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore creates an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}
	m.mu.Lock()
	m.revoked[tokenID] = until
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// ErrUnknownToken is returned by MemoryTokenCodec for tokens it never issued.
var ErrUnknownToken = errors.New("unknown token")

// MemoryTokenCodec stores claims in memory and hands out opaque handles.
// It lets service tests run without signing keys. Revoked is optional.
type MemoryTokenCodec struct {
	Revoked ports.RevocationStore

	mu     sync.Mutex
	n      int
	tokens map[string]domainauth.Claims
}

// NewMemoryTokenCodec creates an empty codec.
func NewMemoryTokenCodec() *MemoryTokenCodec {
	return &MemoryTokenCodec{tokens: make(map[string]domainauth.Claims)}
}

func (m *MemoryTokenCodec) Encode(claims domainauth.Claims) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	raw := fmt.Sprintf("tok-%d", m.n)
	m.tokens[raw] = claims
	return raw, nil
}

func (m *MemoryTokenCodec) Decode(ctx context.Context, raw string) (domainauth.Claims, error) {
	m.mu.Lock()
	claims, ok := m.tokens[raw]
	m.mu.Unlock()
	if !ok {
		return domainauth.Claims{}, ErrUnknownToken
	}
	if m.Revoked != nil && claims.TokenID != "" {
		revoked, err := m.Revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil || revoked {
			return domainauth.Claims{}, errors.New("token revoked")
		}
	}
	return claims, nil
}
