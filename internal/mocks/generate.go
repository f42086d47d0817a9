// Package mocks provides mock implementations for testing the auth service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().FindByIdentifier(gomock.Any(), "user@example.com").Return(rec, nil)
package mocks

// Generate mock for CredentialStore interface from internal/ports package.
// This creates MockCredentialStore with methods for all CredentialStore interface methods:
// FindByIdentifier
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/target/auth-svc/internal/ports CredentialStore
