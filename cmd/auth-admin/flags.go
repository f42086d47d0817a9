package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
	"github.com/target/auth-svc/internal/service"
)

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

type migrateOptions struct {
	Timeout time.Duration
}

type hashOptions struct {
	Password string
}

type credentialOptions struct {
	Email    string
	Password string
	Roles    []domainauth.Role
	Timeout  time.Duration
}

type deleteOptions struct {
	Email   string
	Yes     bool
	Timeout time.Duration
}

type listOptions struct {
	Limit   int
	Offset  int
	Timeout time.Duration
}

type issueOptions struct {
	Email string
	Roles []domainauth.Role
	TTL   time.Duration
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseMigrateFlags(args []string, out io.Writer) (migrateOptions, error) {
	fs := newFlagSet("migrate", out)
	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseHashFlags(args []string, out io.Writer) (hashOptions, error) {
	fs := newFlagSet("hash-password", out)
	opts := hashOptions{}
	fs.StringVar(&opts.Password, "password", "", "Password to hash (read from stdin when empty)")

	if err := fs.Parse(args); err != nil {
		return hashOptions{}, err
	}
	return opts, nil
}

func parseCredentialFlags(args []string, out io.Writer) (credentialOptions, error) {
	fs := newFlagSet("create-credential", out)
	opts := credentialOptions{}
	var roles string
	fs.StringVar(&opts.Email, "email", "", "Credential identifier (email)")
	fs.StringVar(&opts.Password, "password", "", "Plaintext password (read from stdin when empty)")
	fs.StringVar(&roles, "roles", string(domainauth.RoleUser), "Comma-separated roles")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the database write")

	if err := fs.Parse(args); err != nil {
		return credentialOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return credentialOptions{}, errors.New("--email is required")
	}
	opts.Roles = parseRoles(roles)
	if len(opts.Roles) == 0 {
		return credentialOptions{}, errors.New("--roles must name at least one role")
	}
	if opts.Timeout <= 0 {
		return credentialOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDeleteFlags(args []string, out io.Writer) (deleteOptions, error) {
	fs := newFlagSet("delete-credential", out)
	opts := deleteOptions{}
	fs.StringVar(&opts.Email, "email", "", "Credential identifier (email)")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the database write")

	if err := fs.Parse(args); err != nil {
		return deleteOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return deleteOptions{}, errors.New("--email is required")
	}
	return opts, nil
}

func parseListFlags(args []string, out io.Writer) (listOptions, error) {
	fs := newFlagSet("list-credentials", out)
	opts := listOptions{}
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum rows to return")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the query")

	if err := fs.Parse(args); err != nil {
		return listOptions{}, err
	}
	if opts.Limit <= 0 {
		return listOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listOptions{}, errors.New("--offset must not be negative")
	}
	return opts, nil
}

func parseIssueFlags(args []string, out io.Writer, defaultTTL time.Duration) (issueOptions, error) {
	fs := newFlagSet("issue-token", out)
	opts := issueOptions{}
	var roles string
	fs.StringVar(&opts.Email, "email", "", "Token subject (email)")
	fs.StringVar(&roles, "roles", string(domainauth.RoleUser), "Comma-separated roles")
	fs.DurationVar(&opts.TTL, "ttl", defaultTTL, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return issueOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return issueOptions{}, errors.New("--email is required")
	}
	if opts.TTL < service.MinTokenTTL {
		return issueOptions{}, fmt.Errorf("--ttl must be at least %s", service.MinTokenTTL)
	}
	opts.Roles = parseRoles(roles)
	return opts, nil
}

func parseRoles(raw string) []domainauth.Role {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return domainauth.RolesFromStrings(parts)
}
