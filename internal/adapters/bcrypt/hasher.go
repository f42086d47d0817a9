// Package bcrypt provides the password hashing adapter backed by golang.org/x/crypto/bcrypt.
package bcrypt

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the password does not match.
var ErrMismatch = errors.New("password mismatch")

// Hasher implements ports.PasswordHasher.
type Hasher struct {
	cost int
}

// NewHasher builds a Hasher. Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Compare checks password against hash in constant time with respect to the password.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("compare password: %w", err)
}
