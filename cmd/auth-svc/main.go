package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/auth-svc/config"
	"github.com/target/auth-svc/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.SetLogLevel(cfg.SlogLevel())

	logStartupInfo(ctx, logger, &cfg)

	infra, cleanup, err := bootstrap.InitInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	identity, err := bootstrap.BuildIdentityService(bootstrap.AuthConfig{
		Auth:   cfg.Auth,
		Infra:  infra,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	server := bootstrap.NewHTTPServer(bootstrap.HTTPServerConfig{
		HTTP:     cfg.HTTP,
		Identity: identity,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bootstrap.Serve(ctx, bootstrap.ServeConfig{
		Server:          server,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting auth service",
		"addr", cfg.HTTP.ListenAddr(),
		"credential_store", cfg.Auth.Store,
		"jwt_alg", cfg.Auth.Algorithm,
		"token_ttl", cfg.Auth.TokenTTL(),
		"credential_cache_ttl", cfg.Auth.CacheTTL,
		"dev", cfg.IsDev)
}
