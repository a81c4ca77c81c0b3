// Package mocks provides gomock implementations of the auth ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	src := mocks.NewMockAllowlistSource(ctrl)
//	src.EXPECT().Allowlist(gomock.Any()).Return(domainauth.ParseAllowlist("ops@co.com"), nil)
package mocks

// Generate mock for AllowlistSource interface from internal/ports package.
// This creates MockAllowlistSource with methods for all AllowlistSource interface methods:
// Allowlist
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=allowlist_source_mock.go github.com/ifrugal/kb-admin/internal/ports AllowlistSource

// Generate mock for RevocationStore interface from internal/ports package.
// This creates MockRevocationStore with methods for all RevocationStore interface methods:
// Revoke, IsRevoked
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=revocation_store_mock.go github.com/ifrugal/kb-admin/internal/ports RevocationStore
