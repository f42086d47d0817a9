// Package memstore provides a fixed, read-only, in-memory credential store.
package memstore

import (
	"context"
	"fmt"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// Store implements ports.CredentialStore over a map built once at startup.
// It is never mutated after construction, so concurrent reads need no locking.
type Store struct {
	records map[string]domainauth.CredentialRecord
}

// NewStore builds a store from records. Duplicate or unusable records are rejected.
func NewStore(records ...domainauth.CredentialRecord) (*Store, error) {
	m := make(map[string]domainauth.CredentialRecord, len(records))
	for _, r := range records {
		if !r.Usable() {
			return nil, fmt.Errorf("memstore: record %q is missing a hash or roles", r.Identifier)
		}
		if _, dup := m[r.Identifier]; dup {
			return nil, fmt.Errorf("memstore: duplicate identifier %q", r.Identifier)
		}
		r.Roles = append([]domainauth.Role(nil), r.Roles...)
		m[r.Identifier] = r
	}
	return &Store{records: m}, nil
}

// FindByIdentifier returns a copy of the record for id.
func (s *Store) FindByIdentifier(_ context.Context, id string) (domainauth.CredentialRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return domainauth.CredentialRecord{}, domainauth.ErrCredentialNotFound
	}
	r.Roles = append([]domainauth.Role(nil), r.Roles...)
	return r, nil
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }
