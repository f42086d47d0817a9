package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "test-secret", cfg.Auth.Secret)
	assert.Equal(t, SigningHS256, cfg.Auth.Algorithm)
	assert.Equal(t, 30, cfg.Auth.ExpiryMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, CredentialStoreMemory, cfg.Auth.Store)
	assert.Equal(t, "auth-svc", cfg.Auth.Issuer)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, ":8101", cfg.HTTP.ListenAddr())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestAppConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestAppConfig_EmptySecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestAppConfig_BlankSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "   ")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	require.Error(t, cfg.Validate())

	cfg.Auth.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestAppConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("JWT_ALG", "hs512")
	t.Setenv("JWT_EXP_MIN", "5")
	t.Setenv("CREDENTIAL_STORE", "POSTGRES")
	t.Setenv("CREDENTIAL_CACHE_TTL", "2m")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_URI", "localhost:6379")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, SigningHS512, cfg.Auth.Algorithm)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, CredentialStorePostgres, cfg.Auth.Store)
	assert.Equal(t, 2*time.Minute, cfg.Auth.CacheTTL)
	assert.Equal(t, ":9000", cfg.HTTP.ListenAddr())
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.True(t, cfg.Redis.Enabled())
}

func TestAppConfig_InvalidAlgorithm(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("JWT_ALG", "RS256")

	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SigningAlgorithm")
}

func TestAppConfig_InvalidStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("CREDENTIAL_STORE", "ldap")

	var cfg AppConfig
	require.Error(t, env.Parse(&cfg))
}

func TestAuthConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   AuthConfig
		want AuthConfig
	}{
		{
			name: "non-positive ttl falls back to default",
			in:   AuthConfig{ExpiryMinutes: 0, BcryptCost: 10},
			want: AuthConfig{ExpiryMinutes: 30, BcryptCost: 10, Algorithm: SigningHS256, Store: CredentialStoreMemory},
		},
		{
			name: "bcrypt cost clamped low",
			in:   AuthConfig{ExpiryMinutes: 1, BcryptCost: 1},
			want: AuthConfig{ExpiryMinutes: 1, BcryptCost: 4, Algorithm: SigningHS256, Store: CredentialStoreMemory},
		},
		{
			name: "bcrypt cost clamped high and negative cache ttl reset",
			in:   AuthConfig{ExpiryMinutes: 1, BcryptCost: 99, CacheTTL: -time.Second},
			want: AuthConfig{ExpiryMinutes: 1, BcryptCost: 31, Algorithm: SigningHS256, Store: CredentialStoreMemory},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Sanitize()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPConfig_ListenAddr(t *testing.T) {
	h := HTTPConfig{Port: 70000}
	h.Sanitize()
	assert.Equal(t, ":8101", h.ListenAddr())

	h = HTTPConfig{Port: 8101, Addr: "127.0.0.1:9999"}
	assert.Equal(t, "127.0.0.1:9999", h.ListenAddr())
}

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := AppConfig{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), "level %q", in)
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.detectDevMode()
	assert.True(t, cfg.IsDev)
}
