package ports

// Package ports defines interfaces (hexagonal ports) for identity-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// CredentialStore looks up credential records by identifier.
type CredentialStore interface {
	// FindByIdentifier returns the record for id, or domainauth.ErrCredentialNotFound.
	FindByIdentifier(ctx context.Context, id string) (domainauth.CredentialRecord, error)
}

// PasswordHasher produces and verifies salted, deliberately slow password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

// TokenCodec signs and verifies access tokens.
type TokenCodec interface {
	Encode(claims domainauth.TokenClaims) (string, error)
	// Decode verifies the signature and returns the payload. It does not check expiry.
	Decode(token string) (domainauth.TokenClaims, error)
}
