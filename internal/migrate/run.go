package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies ordered .sql files from a filesystem, recording each applied
// version in schema_migrations.
type Migrator struct {
	DB     *sql.DB
	FS     fs.FS // must contain a "migrations" directory
	Logger *slog.Logger
}

// Run applies all SQL migrations embedded in this package. It is safe to call multiple times.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	m := &Migrator{DB: db, FS: migrationsFS, Logger: logger}
	_, err := m.Up(ctx)
	return err
}

// Up applies pending migrations and returns the versions it applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if m.DB == nil {
		return nil, errors.New("migrate: database is required")
	}
	if _, err := m.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}

	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, f := range files {
		version := strings.TrimSuffix(f, ".sql")
		done, applyErr := m.apply(ctx, version, f)
		if applyErr != nil {
			return applied, applyErr
		}
		if done {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func (m *Migrator) files() ([]string, error) {
	entries, err := fs.ReadDir(m.FS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m *Migrator) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger.With("component", "migrations")
	}
	return slog.Default().With("component", "migrations")
}

// apply runs a single migration inside a transaction. It reports false when the
// version was already recorded.
func (m *Migrator) apply(ctx context.Context, version, file string) (bool, error) {
	var exists bool
	if err := m.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", file, err)
	}
	if exists {
		return false, nil
	}

	sqlBytes, err := fs.ReadFile(m.FS, "migrations/"+file)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", file, err)
	}

	logger := m.logger()
	logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "failed to rollback transaction", "err", rollbackErr, "migration_file", file)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return false, fmt.Errorf("exec migration %s: %w", file, execErr)
	}
	if _, insErr := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); insErr != nil {
		return false, fmt.Errorf("record migration %s: %w", file, insErr)
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return false, fmt.Errorf("commit migration %s: %w", file, commitErr)
	}
	return true, nil
}
