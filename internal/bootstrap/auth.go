package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/auth-svc/config"
	bcryptadapter "github.com/target/auth-svc/internal/adapters/bcrypt"
	jwtadapter "github.com/target/auth-svc/internal/adapters/jwt"
	"github.com/target/auth-svc/internal/adapters/memstore"
	redisadapter "github.com/target/auth-svc/internal/adapters/redis"
	"github.com/target/auth-svc/internal/data"
	"github.com/target/auth-svc/internal/devseed"
	"github.com/target/auth-svc/internal/ports"
	"github.com/target/auth-svc/internal/service"
)

// Infrastructure holds optional shared connections. Either may be nil.
type Infrastructure struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

// AuthConfig contains configuration for the identity service and its credential store.
type AuthConfig struct {
	Auth   config.AuthConfig
	Infra  Infrastructure
	Logger *slog.Logger
}

func (c AuthConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// NewPasswordHasher builds the bcrypt hasher for the configured cost.
func NewPasswordHasher(cfg config.AuthConfig) *bcryptadapter.Hasher {
	return bcryptadapter.NewHasher(cfg.BcryptCost)
}

// BuildCredentialStore creates the configured credential store, optionally fronted by the Redis cache.
//
//nolint:ireturn // the concrete store depends on CREDENTIAL_STORE.
func BuildCredentialStore(cfg AuthConfig, hasher ports.PasswordHasher) (ports.CredentialStore, error) {
	var store ports.CredentialStore

	switch cfg.Auth.Store {
	case config.CredentialStoreMemory:
		records, err := devseed.BuildRecords(hasher, devseed.DemoAccounts())
		if err != nil {
			return nil, fmt.Errorf("build demo credentials: %w", err)
		}
		mem, err := memstore.NewStore(records...)
		if err != nil {
			return nil, fmt.Errorf("build memory store: %w", err)
		}
		cfg.logger().Info("credential store ready", "kind", "memory", "accounts", mem.Len())
		store = mem

	case config.CredentialStorePostgres:
		if cfg.Infra.DB == nil {
			return nil, errors.New("postgres credential store requires a database connection")
		}
		cfg.logger().Info("credential store ready", "kind", "postgres")
		store = data.NewCredentialRepo(cfg.Infra.DB)

	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Auth.Store)
	}

	if cfg.Auth.CacheTTL <= 0 {
		return store, nil
	}
	if cfg.Infra.Redis == nil {
		cfg.logger().Warn("credential cache disabled: redis client not configured", "ttl", cfg.Auth.CacheTTL)
		return store, nil
	}

	cache, err := redisadapter.NewCredentialCache(redisadapter.CredentialCacheOptions{
		Client: cfg.Infra.Redis,
		Next:   store,
		TTL:    cfg.Auth.CacheTTL,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build credential cache: %w", err)
	}
	cfg.logger().Info("credential cache enabled", "ttl", cfg.Auth.CacheTTL)
	return cache, nil
}

// BuildIdentityService creates the identity service. An empty secret or an
// unsupported algorithm is an error and must stop startup.
func BuildIdentityService(cfg AuthConfig) (*service.IdentityService, error) {
	hasher := NewPasswordHasher(cfg.Auth)

	codec, err := jwtadapter.NewCodec(jwtadapter.Config{
		Secret:    []byte(cfg.Auth.Secret),
		Algorithm: string(cfg.Auth.Algorithm),
	})
	if err != nil {
		return nil, fmt.Errorf("build token codec: %w", err)
	}

	store, err := BuildCredentialStore(cfg, hasher)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewIdentityService(service.IdentityServiceOptions{
		Ports:  service.IdentityPorts{Store: store, Hasher: hasher, Codec: codec},
		Config: service.IdentityConfig{TTL: cfg.Auth.TokenTTL(), Issuer: cfg.Auth.Issuer},
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build identity service: %w", err)
	}
	return svc, nil
}

// NeedsDatabase reports whether cfg requires a Postgres connection.
func NeedsDatabase(cfg *config.AppConfig) bool {
	return cfg != nil && cfg.Auth.Store == config.CredentialStorePostgres
}

// NeedsRedis reports whether cfg requires a Redis connection.
func NeedsRedis(cfg *config.AppConfig) bool {
	return cfg != nil && cfg.Auth.CacheTTL > 0 && cfg.Redis.Enabled()
}

// InitInfrastructure connects the databases cfg requires. The returned cleanup closes them.
func InitInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (Infrastructure, func(), error) {
	var infra Infrastructure
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	cleanup := func() {
		if infra.Redis != nil {
			if cerr := infra.Redis.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}
		if infra.DB != nil {
			if cerr := infra.DB.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database failed", "error", cerr)
			}
		}
	}

	if NeedsDatabase(cfg) {
		db, err := ConnectDB(dbCfg)
		if err != nil {
			return Infrastructure{}, func() {}, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db

		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, db, logger); err != nil {
				cleanup()
				return Infrastructure{}, func() {}, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	if NeedsRedis(cfg) {
		client, err := ConnectRedis(dbCfg)
		if err != nil {
			cleanup()
			return Infrastructure{}, func() {}, fmt.Errorf("connect redis: %w", err)
		}
		infra.Redis = client
	}

	return infra, cleanup, nil
}
