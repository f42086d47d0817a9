package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	bcryptadapter "github.com/target/auth-svc/internal/adapters/bcrypt"
	jwtadapter "github.com/target/auth-svc/internal/adapters/jwt"
	"github.com/target/auth-svc/internal/adapters/memstore"
	redisadapter "github.com/target/auth-svc/internal/adapters/redis"
	"github.com/target/auth-svc/internal/bootstrap"
	"github.com/target/auth-svc/internal/data"
	"github.com/target/auth-svc/internal/devseed"
	domainauth "github.com/target/auth-svc/internal/domain/auth"
	apperrors "github.com/target/auth-svc/internal/errors"
	"github.com/target/auth-svc/internal/service"
)

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	return withDB(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
	})
}

func runHashPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseHashFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	password, err := resolvePassword(opts.Password, cmdCtx.In)
	if err != nil {
		return err
	}

	hash, err := bootstrap.NewPasswordHasher(cmdCtx.Config.Auth).Hash(password)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%s\n", hash)
}

func runCreateCredential(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	password, err := resolvePassword(opts.Password, cmdCtx.In)
	if err != nil {
		return err
	}

	hash, err := bootstrap.NewPasswordHasher(cmdCtx.Config.Auth).Hash(password)
	if err != nil {
		return err
	}
	rec := domainauth.CredentialRecord{Identifier: opts.Email, PasswordHash: hash, Roles: opts.Roles}

	return withDB(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if upsertErr := data.NewCredentialRepo(db).Upsert(ctx, rec); upsertErr != nil {
			if apperrors.IsValidation(upsertErr) {
				return fmt.Errorf("credential %s rejected: %w", opts.Email, upsertErr)
			}
			return upsertErr
		}
		invalidateCachedCredential(ctx, cmdCtx, opts.Email)
		return writef(cmdCtx.Out, "credential %s saved with roles %s\n",
			opts.Email, strings.Join(domainauth.RolesToStrings(opts.Roles), ","))
	})
}

func runDeleteCredential(cmdCtx *commandContext, args []string) error {
	opts, err := parseDeleteFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if !opts.Yes {
		if confirmErr := confirm(cmdCtx, fmt.Sprintf("About to delete credential %s.", opts.Email)); confirmErr != nil {
			return confirmErr
		}
	}

	return withDB(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if delErr := data.NewCredentialRepo(db).Delete(ctx, opts.Email); delErr != nil {
			return delErr
		}
		invalidateCachedCredential(ctx, cmdCtx, opts.Email)
		return writef(cmdCtx.Out, "credential %s deleted\n", opts.Email)
	})
}

func runListCredentials(cmdCtx *commandContext, args []string) error {
	opts, err := parseListFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	return withDB(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		rows, listErr := data.NewCredentialRepo(db).List(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return listErr
		}
		return printCredentials(cmdCtx.Out, rows)
	})
}

func printCredentials(w io.Writer, rows []data.CredentialSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "IDENTIFIER\tROLES\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writef(tw, "%s\t%s\n", r.Identifier, strings.Join(domainauth.RolesToStrings(r.Roles), ",")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runIssueToken(cmdCtx *commandContext, args []string) error {
	auth := cmdCtx.Config.Auth
	opts, err := parseIssueFlags(args, os.Stderr, auth.TokenTTL())
	if err != nil {
		return err
	}

	svc, err := newTokenIssuer(cmdCtx)
	if err != nil {
		return err
	}
	issued, err := svc.IssueTokenTTL(opts.Email, opts.Roles, opts.TTL)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%s\n", issued.AccessToken)
}

// newTokenIssuer builds an identity service that can sign tokens but knows no credentials.
func newTokenIssuer(cmdCtx *commandContext) (*service.IdentityService, error) {
	auth := cmdCtx.Config.Auth
	codec, err := jwtadapter.NewCodec(jwtadapter.Config{
		Secret:    []byte(auth.Secret),
		Algorithm: string(auth.Algorithm),
	})
	if err != nil {
		return nil, err
	}
	empty, err := memstore.NewStore()
	if err != nil {
		return nil, err
	}
	return service.NewIdentityService(service.IdentityServiceOptions{
		Ports: service.IdentityPorts{
			Store:  empty,
			Hasher: bcryptadapter.NewHasher(auth.BcryptCost),
			Codec:  codec,
		},
		Config: service.IdentityConfig{TTL: auth.TokenTTL(), Issuer: auth.Issuer},
		Logger: cmdCtx.Logger,
	})
}

func runSeedDemo(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	return withDB(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		hasher := bootstrap.NewPasswordHasher(cmdCtx.Config.Auth)
		if seedErr := devseed.Seed(ctx, data.NewCredentialRepo(db), hasher, cmdCtx.Logger); seedErr != nil {
			return seedErr
		}
		for _, acct := range devseed.DemoAccounts() {
			invalidateCachedCredential(ctx, cmdCtx, acct.Identifier)
		}
		return writef(cmdCtx.Out, "seeded %d demo accounts\n", len(devseed.DemoAccounts()))
	})
}

func withDB(cmdCtx *commandContext, timeout time.Duration, fn func(context.Context, *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	return withTimeoutHint(fn(ctx, db))
}

// withTimeoutHint points at the -timeout flag when a database call ran out of time.
func withTimeoutHint(err error) error {
	if apperrors.IsTimeout(err) {
		return fmt.Errorf("%w (raise -timeout to allow more time)", err)
	}
	return err
}

// invalidateCachedCredential drops a stale cache entry when the service runs with the Redis cache.
// Failures are logged; entries also expire on their own TTL.
func invalidateCachedCredential(ctx context.Context, cmdCtx *commandContext, id string) {
	cfg := cmdCtx.Config
	if cfg.Auth.CacheTTL <= 0 || !cfg.Redis.Enabled() {
		return
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: cmdCtx.Logger})
	if err != nil {
		cmdCtx.Logger.Warn("credential cache not invalidated", "identifier", id, "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	empty, err := memstore.NewStore()
	if err != nil {
		return
	}
	cache, err := redisadapter.NewCredentialCache(redisadapter.CredentialCacheOptions{
		Client: client,
		Next:   empty,
		TTL:    cfg.Auth.CacheTTL,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return
	}
	if invErr := cache.Invalidate(ctx, id); invErr != nil {
		cmdCtx.Logger.Warn("credential cache not invalidated", "identifier", id, "error", invErr)
	}
}

// resolvePassword returns flagValue, or the first line of in when it is empty.
func resolvePassword(flagValue string, in io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if in == nil {
		return "", errors.New("password is required")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func confirm(cmdCtx *commandContext, message string) error {
	if err := writef(cmdCtx.Out, "%s\nContinue? [y/N]: ", message); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.New("aborted by user")
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}
