// Package redis provides Redis-based adapters for the auth service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/auth-svc/internal/domain/auth"
	"github.com/target/auth-svc/internal/ports"
)

const defaultCredentialPrefix = "auth:credential:"

// CredentialCacheOptions configures a CredentialCache.
type CredentialCacheOptions struct {
	Client redis.UniversalClient
	Next   ports.CredentialStore
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

// CredentialCache is a read-through cache in front of another CredentialStore.
// Only found records are cached; misses always reach the underlying store.
// Redis failures degrade to the underlying store.
// Entries hold the record as stored, bcrypt hash included, so the Redis instance
// needs the same access controls as the credential database.
type CredentialCache struct {
	client redis.UniversalClient
	next   ports.CredentialStore
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCredentialCache creates a CredentialCache.
func NewCredentialCache(opts CredentialCacheOptions) (*CredentialCache, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Next == nil {
		return nil, errors.New("underlying credential store is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultCredentialPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialCache{
		client: opts.Client,
		next:   opts.Next,
		ttl:    opts.TTL,
		prefix: prefix,
		logger: logger.With("component", "credential_cache"),
	}, nil
}

// FindByIdentifier implements ports.CredentialStore.
func (c *CredentialCache) FindByIdentifier(ctx context.Context, id string) (domainauth.CredentialRecord, error) {
	if id == "" {
		return domainauth.CredentialRecord{}, domainauth.ErrCredentialNotFound
	}

	key := c.prefix + id
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec domainauth.CredentialRecord
		if unmarshalErr := json.Unmarshal(data, &rec); unmarshalErr == nil && rec.Usable() {
			return rec, nil
		}
		c.logger.WarnContext(ctx, "discarding unreadable cached credential", "identifier", id)
		_ = c.client.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "credential cache read failed", "error", err)
	}

	rec, err := c.next.FindByIdentifier(ctx, id)
	if err != nil {
		return domainauth.CredentialRecord{}, err
	}

	if setErr := c.store(ctx, key, rec); setErr != nil {
		c.logger.WarnContext(ctx, "credential cache write failed", "error", setErr)
	}
	return rec, nil
}

// Invalidate drops the cached record for id.
func (c *CredentialCache) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+id).Err()
}

func (c *CredentialCache) store(ctx context.Context, key string, rec domainauth.CredentialRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
