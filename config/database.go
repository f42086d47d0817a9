package config

// DBConfig contains PostgreSQL database configuration.
// Only used when CREDENTIAL_STORE=postgres.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"rag"`
	Password string `env:"PASSWORD"                envDefault:"rag"`
	Name     string `env:"NAME"                    envDefault:"rag_auth"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
// An empty URI disables Redis entirely.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.URI != ""
}
