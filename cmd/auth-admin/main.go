package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/target/auth-svc/config"
	"github.com/target/auth-svc/internal/bootstrap"
	apperrors "github.com/target/auth-svc/internal/errors"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	In     io.Reader
	Out    io.Writer
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	bootstrap.SetLogLevel(cfg.SlogLevel())

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", failureAttrs(cmdName, runErr)...)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"hash-password": {
			name:        "hash-password",
			description: "Print a bcrypt hash for a password (flag or stdin)",
			run:         runHashPassword,
		},
		"create-credential": {
			name:        "create-credential",
			description: "Create or replace a credential in Postgres",
			run:         runCreateCredential,
		},
		"delete-credential": {
			name:        "delete-credential",
			description: "Delete a credential from Postgres",
			run:         runDeleteCredential,
		},
		"list-credentials": {
			name:        "list-credentials",
			description: "List credentials stored in Postgres",
			run:         runListCredentials,
		},
		"issue-token": {
			name:        "issue-token",
			description: "Mint an access token with the configured secret",
			run:         runIssueToken,
		},
		"seed-demo": {
			name:        "seed-demo",
			description: "Run migrations and upsert the demo accounts into Postgres",
			run:         runSeedDemo,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: auth-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-20s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// failureAttrs builds log attributes for a failed command, including the
// application error code and field when the error carries them.
func failureAttrs(cmdName string, err error) []any {
	attrs := []any{"command", cmdName, "error", err}
	if code := apperrors.GetCode(err); code != "" {
		attrs = append(attrs, "code", string(code))
	}
	if field := apperrors.GetField(err); field != "" {
		attrs = append(attrs, "field", field)
	}
	return attrs
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
