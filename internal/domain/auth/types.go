// Package auth contains domain-level types for credentials, tokens and principals.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"slices"
	"time"
)

// Role represents an authorization role label.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleExpert    Role = "expert"
	RoleUser      Role = "user"
)

// CredentialRecord is one registered principal as held by a credential store.
// Identifier is email-shaped and unique within a store.
type CredentialRecord struct {
	Identifier   string `json:"identifier"`
	PasswordHash string `json:"password_hash"`
	Roles        []Role `json:"roles"`
}

// Usable reports whether the record can authenticate at all.
func (c CredentialRecord) Usable() bool {
	return c.Identifier != "" && c.PasswordHash != "" && len(c.Roles) > 0
}

// Principal is the verified identity attached to a request after token validation.
type Principal struct {
	Identifier string
	Roles      []Role
}

// HasRole returns true if the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// TokenClaims is the logical payload of an access token.
type TokenClaims struct {
	Subject   string
	Roles     []Role
	ExpiresAt time.Time // UTC
	IssuedAt  time.Time // UTC
	ID        string
	Issuer    string
}

// RolesToStrings converts roles to their string form.
func RolesToStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// RolesFromStrings converts string labels to roles, dropping blanks.
func RolesFromStrings(labels []string) []Role {
	out := make([]Role, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		out = append(out, Role(l))
	}
	return out
}
