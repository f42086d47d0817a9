package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SigningAlgorithm is the JWT signing algorithm. Only the HMAC family is
// supported since tokens are signed with a shared secret.
type SigningAlgorithm string

const (
	SigningHS256 SigningAlgorithm = "HS256"
	SigningHS384 SigningAlgorithm = "HS384"
	SigningHS512 SigningAlgorithm = "HS512"
)

// UnmarshalText implements encoding.TextUnmarshaler for SigningAlgorithm.
func (a *SigningAlgorithm) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	switch SigningAlgorithm(v) {
	case SigningHS256, SigningHS384, SigningHS512:
		*a = SigningAlgorithm(v)
		return nil
	default:
		return fmt.Errorf("invalid SigningAlgorithm: %q (valid options: HS256, HS384, HS512)", v)
	}
}

// CredentialStoreKind selects the backing store for credential lookups.
type CredentialStoreKind string

const (
	// CredentialStoreMemory uses the fixed in-memory demo accounts.
	CredentialStoreMemory CredentialStoreKind = "memory"
	// CredentialStorePostgres reads credentials from the credentials table.
	CredentialStorePostgres CredentialStoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for CredentialStoreKind.
func (k *CredentialStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch CredentialStoreKind(v) {
	case CredentialStoreMemory, CredentialStorePostgres:
		*k = CredentialStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid CredentialStoreKind: %q (valid options: memory, postgres)", v)
	}
}

// AuthConfig groups all token and credential configuration.
type AuthConfig struct {
	// Secret is the HMAC signing secret. Startup fails when it is unset or empty.
	Secret string `env:"JWT_SECRET,required,notEmpty"`

	// Algorithm is the JWT signing algorithm.
	Algorithm SigningAlgorithm `env:"JWT_ALG" envDefault:"HS256"`

	// ExpiryMinutes is the access token lifetime in minutes.
	ExpiryMinutes int `env:"JWT_EXP_MIN" envDefault:"30"`

	// Issuer is written to the iss claim of issued tokens.
	Issuer string `env:"JWT_ISSUER" envDefault:"auth-svc"`

	// Store selects where credential records are looked up.
	Store CredentialStoreKind `env:"CREDENTIAL_STORE" envDefault:"memory"`

	// CacheTTL enables a Redis read-through cache of credential records when > 0.
	CacheTTL time.Duration `env:"CREDENTIAL_CACHE_TTL" envDefault:"0s"`

	// BcryptCost is the work factor used when hashing passwords.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// TokenTTL returns the token lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.ExpiryMinutes) * time.Minute
}

// Validate reports configuration that must stop startup.
func (a AuthConfig) Validate() error {
	if strings.TrimSpace(a.Secret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	return nil
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.ExpiryMinutes < 1 {
		a.ExpiryMinutes = 30
	}
	if a.BcryptCost < bcrypt.MinCost {
		a.BcryptCost = bcrypt.MinCost
	}
	if a.BcryptCost > bcrypt.MaxCost {
		a.BcryptCost = bcrypt.MaxCost
	}
	if a.CacheTTL < 0 {
		a.CacheTTL = 0
	}
	if a.Algorithm == "" {
		a.Algorithm = SigningHS256
	}
	if a.Store == "" {
		a.Store = CredentialStoreMemory
	}
}
