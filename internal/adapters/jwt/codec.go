// Package jwt signs and verifies access tokens with github.com/golang-jwt/jwt/v5.
package jwt

import (
	"bytes"
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// Config controls token signing. Secret and Algorithm are required.
type Config struct {
	Secret    []byte
	Algorithm string // HS256, HS384 or HS512
}

// Codec implements ports.TokenCodec using HMAC-signed JWTs.
type Codec struct {
	secret []byte
	method gojwt.SigningMethod
}

// accessClaims is the wire shape of the token payload.
type accessClaims struct {
	gojwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// NewCodec validates cfg and builds a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(bytes.TrimSpace(cfg.Secret)) == 0 {
		return nil, errors.New("jwt: signing secret is required")
	}
	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Codec{
		secret: append([]byte(nil), cfg.Secret...),
		method: method,
	}, nil
}

func hmacMethod(alg string) (gojwt.SigningMethod, error) {
	switch alg {
	case gojwt.SigningMethodHS256.Alg():
		return gojwt.SigningMethodHS256, nil
	case gojwt.SigningMethodHS384.Alg():
		return gojwt.SigningMethodHS384, nil
	case gojwt.SigningMethodHS512.Alg():
		return gojwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("jwt: unsupported signing algorithm %q", alg)
	}
}

// Algorithm returns the configured alg header value.
func (c *Codec) Algorithm() string { return c.method.Alg() }

// Encode signs claims into a compact JWT.
func (c *Codec) Encode(claims domainauth.TokenClaims) (string, error) {
	wire := accessClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: gojwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.ID,
			Issuer:    claims.Issuer,
		},
		Roles: domainauth.RolesToStrings(claims.Roles),
	}
	if !claims.IssuedAt.IsZero() {
		wire.IssuedAt = gojwt.NewNumericDate(claims.IssuedAt)
	}

	signed, err := gojwt.NewWithClaims(c.method, wire).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and algorithm and returns the payload.
// Time-based claims are left to the caller so expiry is judged against its clock.
// Every failure is a *domainauth.TokenError of kind malformed.
func (c *Codec) Decode(token string) (domainauth.TokenClaims, error) {
	if token == "" {
		return domainauth.TokenClaims{}, domainauth.NewTokenError(domainauth.TokenMalformed, errors.New("empty token"))
	}

	var parsed accessClaims
	_, err := gojwt.ParseWithClaims(token, &parsed, func(*gojwt.Token) (any, error) {
		return c.secret, nil
	},
		gojwt.WithValidMethods([]string{c.method.Alg()}),
		gojwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domainauth.TokenClaims{}, mapJWTError(err)
	}
	if parsed.ExpiresAt == nil {
		return domainauth.TokenClaims{}, domainauth.NewTokenError(domainauth.TokenMalformed, errors.New("exp claim is required"))
	}

	out := domainauth.TokenClaims{
		Subject:   parsed.Subject,
		Roles:     domainauth.RolesFromStrings(parsed.Roles),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
		ID:        parsed.ID,
		Issuer:    parsed.Issuer,
	}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return out, nil
}

// mapJWTError translates jwt library errors to token errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return domainauth.NewTokenError(domainauth.TokenMalformed, fmt.Errorf("signature is invalid: %w", err))
	case errors.Is(err, gojwt.ErrTokenUnverifiable):
		return domainauth.NewTokenError(domainauth.TokenMalformed, fmt.Errorf("alg is invalid: %w", err))
	default:
		return domainauth.NewTokenError(domainauth.TokenMalformed, err)
	}
}
