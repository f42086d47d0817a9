// Package data provides the Postgres-backed credential repository for the auth service.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
	apperrors "github.com/target/auth-svc/internal/errors"
)

const (
	findCredentialQuery = `SELECT identifier, password_hash, array_to_string(roles, ',')
		FROM credentials WHERE identifier = $1`

	upsertCredentialQuery = `INSERT INTO credentials (identifier, password_hash, roles)
		VALUES ($1, $2, string_to_array($3, ','))
		ON CONFLICT (identifier) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, roles = EXCLUDED.roles, updated_at = now()`

	listCredentialsQuery = `SELECT identifier, array_to_string(roles, ',')
		FROM credentials ORDER BY identifier LIMIT $1 OFFSET $2`

	deleteCredentialQuery = `DELETE FROM credentials WHERE identifier = $1`
)

// CredentialSummary is a credential without its password hash, for listings.
type CredentialSummary struct {
	Identifier string
	Roles      []domainauth.Role
}

// CredentialRepo provides database operations for credential records.
// Roles are stored as TEXT[] and transported as comma-joined strings.
type CredentialRepo struct {
	DB *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo instance with the given database connection.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{DB: db}
}

// FindByIdentifier implements ports.CredentialStore.
func (r *CredentialRepo) FindByIdentifier(ctx context.Context, id string) (domainauth.CredentialRecord, error) {
	var (
		rec   domainauth.CredentialRecord
		roles string
	)
	err := r.DB.QueryRowContext(ctx, findCredentialQuery, id).Scan(&rec.Identifier, &rec.PasswordHash, &roles)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return domainauth.CredentialRecord{}, domainauth.ErrCredentialNotFound
		}
		return domainauth.CredentialRecord{}, fmt.Errorf("find credential: %w", mapped)
	}
	rec.Roles = splitRoles(roles)
	return rec, nil
}

// Upsert creates or replaces the credential for rec.Identifier.
func (r *CredentialRepo) Upsert(ctx context.Context, rec domainauth.CredentialRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, upsertCredentialQuery,
		rec.Identifier, rec.PasswordHash, joinRoles(rec.Roles))
	if err != nil {
		return fmt.Errorf("upsert credential: %w", apperrors.MapDBError(err))
	}
	return nil
}

// List returns credential summaries ordered by identifier.
func (r *CredentialRepo) List(ctx context.Context, limit, offset int) ([]CredentialSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, listCredentialsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []CredentialSummary
	for rows.Next() {
		var (
			s     CredentialSummary
			roles string
		)
		if scanErr := rows.Scan(&s.Identifier, &roles); scanErr != nil {
			return nil, fmt.Errorf("scan credential: %w", scanErr)
		}
		s.Roles = splitRoles(roles)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// Delete removes a credential. Missing identifiers return ErrCredentialNotFound.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, deleteCredentialQuery, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n == 0 {
		return domainauth.ErrCredentialNotFound
	}
	return nil
}

func validateRecord(rec domainauth.CredentialRecord) error {
	if strings.TrimSpace(rec.Identifier) == "" {
		return apperrors.ValidationField("identifier", "identifier is required")
	}
	if rec.PasswordHash == "" {
		return apperrors.ValidationField("password_hash", "password hash is required")
	}
	if len(rec.Roles) == 0 {
		return apperrors.ValidationField("roles", "at least one role is required")
	}
	for _, role := range rec.Roles {
		if role == "" || strings.Contains(string(role), ",") {
			return apperrors.ValidationField("roles", fmt.Sprintf("invalid role %q", role))
		}
	}
	return nil
}

func joinRoles(roles []domainauth.Role) string {
	return strings.Join(domainauth.RolesToStrings(roles), ",")
}

func splitRoles(s string) []domainauth.Role {
	if s == "" {
		return nil
	}
	return domainauth.RolesFromStrings(strings.Split(s, ","))
}
