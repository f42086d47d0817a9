// Package service provides the identity service: password checks, token issuance and validation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/auth-svc/internal/domain/auth"
	"github.com/target/auth-svc/internal/ports"
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// MinTokenTTL is the shortest token lifetime. Token timestamps carry whole seconds.
const MinTokenTTL = time.Second

// dummyPassword is hashed once at construction and compared against when an
// identifier is unknown, so that path costs the same as a wrong password.
const dummyPassword = "auth-svc-timing-equalizer"

// IdentityPorts groups the required collaborators of IdentityService.
type IdentityPorts struct {
	Store  ports.CredentialStore
	Hasher ports.PasswordHasher
	Codec  ports.TokenCodec
}

// IdentityConfig is the immutable token configuration.
type IdentityConfig struct {
	TTL    time.Duration
	Issuer string
	Now    func() time.Time // defaults to time.Now
}

// IdentityServiceOptions groups dependencies for IdentityService.
type IdentityServiceOptions struct {
	Ports  IdentityPorts
	Config IdentityConfig
	Logger *slog.Logger
}

// IssuedToken is the result of a successful login or token issuance.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// IdentityService authenticates credentials, issues access tokens and validates them.
// It holds no mutable state and is safe for concurrent use.
type IdentityService struct {
	store     ports.CredentialStore
	hasher    ports.PasswordHasher
	codec     ports.TokenCodec
	ttl       time.Duration
	issuer    string
	now       func() time.Time
	dummyHash string
	logger    *slog.Logger
}

// NewIdentityService constructs a new IdentityService.
func NewIdentityService(opts IdentityServiceOptions) (*IdentityService, error) {
	p := opts.Ports
	if p.Store == nil {
		return nil, errors.New("credential store is required")
	}
	if p.Hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if p.Codec == nil {
		return nil, errors.New("token codec is required")
	}
	if opts.Config.TTL < MinTokenTTL {
		return nil, fmt.Errorf("token ttl must be at least %s", MinTokenTTL)
	}

	dummy, err := p.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IdentityService{
		store:     p.Store,
		hasher:    p.Hasher,
		codec:     p.Codec,
		ttl:       opts.Config.TTL,
		issuer:    opts.Config.Issuer,
		now:       now,
		dummyHash: dummy,
		logger:    logger.With("component", "identity"),
	}, nil
}

// TTL returns the configured token lifetime.
func (s *IdentityService) TTL() time.Duration { return s.ttl }

// Authenticate verifies identifier and password against the credential store.
// Unknown identifiers and wrong passwords both return domainauth.ErrInvalidCredentials.
// Store failures are returned wrapped and are not credential failures.
func (s *IdentityService) Authenticate(ctx context.Context, identifier, password string) (domainauth.CredentialRecord, error) {
	if identifier == "" || password == "" {
		s.burnCompare(password)
		return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
	}

	rec, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domainauth.ErrCredentialNotFound) {
			s.burnCompare(password)
			return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
		}
		return domainauth.CredentialRecord{}, fmt.Errorf("lookup credential: %w", err)
	}

	if !rec.Usable() {
		s.logger.WarnContext(ctx, "credential record is not usable", "identifier", identifier)
		s.burnCompare(password)
		return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
	}

	if cmpErr := s.hasher.Compare(rec.PasswordHash, password); cmpErr != nil {
		return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
	}

	rec.Roles = append([]domainauth.Role(nil), rec.Roles...)
	return rec, nil
}

func (s *IdentityService) burnCompare(password string) {
	_ = s.hasher.Compare(s.dummyHash, password)
}

// IssueToken signs a token for identifier and roles with the configured TTL.
func (s *IdentityService) IssueToken(identifier string, roles []domainauth.Role) (IssuedToken, error) {
	return s.IssueTokenTTL(identifier, roles, s.ttl)
}

// IssueTokenTTL signs a token that expires ttl after now, truncated to the second.
func (s *IdentityService) IssueTokenTTL(identifier string, roles []domainauth.Role, ttl time.Duration) (IssuedToken, error) {
	if identifier == "" {
		return IssuedToken{}, errors.New("identifier is required")
	}
	if ttl < MinTokenTTL {
		return IssuedToken{}, fmt.Errorf("ttl must be at least %s", MinTokenTTL)
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := domainauth.TokenClaims{
		Subject:   identifier,
		Roles:     roles,
		ExpiresAt: now.Add(ttl),
		IssuedAt:  now,
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
	}
	token, err := s.codec.Encode(claims)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}
	return IssuedToken{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// ValidateToken verifies token and returns the principal it names.
// Failures are *domainauth.TokenError values; a token is expired once now >= exp.
func (s *IdentityService) ValidateToken(token string) (domainauth.Principal, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		var tokErr *domainauth.TokenError
		if errors.As(err, &tokErr) {
			return domainauth.Principal{}, tokErr
		}
		return domainauth.Principal{}, domainauth.NewTokenError(domainauth.TokenMalformed, err)
	}

	if !s.now().Before(claims.ExpiresAt) {
		return domainauth.Principal{}, domainauth.NewTokenError(domainauth.TokenExpired,
			fmt.Errorf("expired at %s", claims.ExpiresAt.Format(time.RFC3339)))
	}
	if claims.Subject == "" {
		return domainauth.Principal{}, domainauth.NewTokenError(domainauth.TokenInvalidSubject, nil)
	}

	roles := claims.Roles
	if roles == nil {
		roles = []domainauth.Role{}
	}
	return domainauth.Principal{Identifier: claims.Subject, Roles: roles}, nil
}

// Login authenticates and, on success, issues a token with the configured TTL.
func (s *IdentityService) Login(ctx context.Context, identifier, password string) (IssuedToken, error) {
	rec, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			s.logger.InfoContext(ctx, "login rejected", "identifier", identifier)
		}
		return IssuedToken{}, err
	}

	issued, err := s.IssueToken(rec.Identifier, rec.Roles)
	if err != nil {
		return IssuedToken{}, err
	}
	s.logger.InfoContext(ctx, "login succeeded", "identifier", rec.Identifier)
	return issued, nil
}
