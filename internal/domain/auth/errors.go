package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the single login failure signal. Unknown identifiers
	// and wrong passwords both map to it.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrCredentialNotFound is returned by credential stores for unknown identifiers.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidToken is matched by every *TokenError.
	ErrInvalidToken = errors.New("could not validate credentials")

	// ErrInsufficientRole is returned when a principal lacks every required role.
	ErrInsufficientRole = errors.New("insufficient role")
)

// TokenFailureKind classifies why a token was rejected. It is for logs only.
type TokenFailureKind string

const (
	TokenMalformed      TokenFailureKind = "malformed"
	TokenExpired        TokenFailureKind = "expired"
	TokenInvalidSubject TokenFailureKind = "invalid-subject"
)

// TokenError is returned by token validation.
type TokenError struct {
	Kind TokenFailureKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + string(e.Kind)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidToken) true for every TokenError.
func (e *TokenError) Is(target error) bool { return target == ErrInvalidToken }

// NewTokenError builds a TokenError of the given kind.
func NewTokenError(kind TokenFailureKind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

// TokenFailure extracts the failure kind from err, if it is a TokenError.
func TokenFailure(err error) (TokenFailureKind, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
