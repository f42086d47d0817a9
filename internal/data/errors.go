package data

import (
	"errors"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrCredentialNotFound aliases the domain sentinel so callers of the repository
	// need not import the domain package to test for it.
	ErrCredentialNotFound = domainauth.ErrCredentialNotFound
)

// IsNotFound reports whether err means the credential does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
