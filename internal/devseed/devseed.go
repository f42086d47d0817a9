// Package devseed holds the demo accounts the service ships with and helpers to
// materialize them into credential records or a persistent store.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
	"github.com/target/auth-svc/internal/ports"
)

// Account is a plaintext demo account definition.
type Account struct {
	Identifier string
	Password   string
	Roles      []domainauth.Role
}

// DemoAccounts returns the fixed development accounts.
func DemoAccounts() []Account {
	return []Account{
		{
			Identifier: "admin@example.com",
			Password:   "admin123",
			Roles: []domainauth.Role{
				domainauth.RoleAdmin, domainauth.RoleModerator, domainauth.RoleExpert, domainauth.RoleUser,
			},
		},
		{
			Identifier: "expert@example.com",
			Password:   "expert123",
			Roles:      []domainauth.Role{domainauth.RoleExpert, domainauth.RoleUser},
		},
		{
			Identifier: "user@example.com",
			Password:   "user123",
			Roles:      []domainauth.Role{domainauth.RoleUser},
		},
	}
}

// BuildRecords hashes each account's password and returns credential records.
func BuildRecords(hasher ports.PasswordHasher, accounts []Account) ([]domainauth.CredentialRecord, error) {
	out := make([]domainauth.CredentialRecord, 0, len(accounts))
	for _, a := range accounts {
		hash, err := hasher.Hash(a.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.Identifier, err)
		}
		out = append(out, domainauth.CredentialRecord{
			Identifier:   a.Identifier,
			PasswordHash: hash,
			Roles:        append([]domainauth.Role(nil), a.Roles...),
		})
	}
	return out, nil
}

// Upserter persists credential records.
type Upserter interface {
	Upsert(ctx context.Context, rec domainauth.CredentialRecord) error
}

// Seed writes the demo accounts through repo.
func Seed(ctx context.Context, repo Upserter, hasher ports.PasswordHasher, logger *slog.Logger) error {
	records, err := BuildRecords(hasher, DemoAccounts())
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := repo.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("seed %s: %w", rec.Identifier, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded credential", "identifier", rec.Identifier, "roles", rec.Roles)
		}
	}
	return nil
}
