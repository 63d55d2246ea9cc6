// Command accounts runs operator actions against registered accounts.
//
// Usage:
//
//	accounts -deactivate 42
//
// A deactivated account can no longer log in, and its outstanding session
// tokens are rejected on their next protected request.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/smart-city-assistant/config"
	"github.com/upb/smart-city-assistant/internal/observability"
	"github.com/upb/smart-city-assistant/repositories/postgres"
	"github.com/upb/smart-city-assistant/services/identity"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "accounts: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	deactivateID int64
}

func parseArgs(args []string, errOut io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("accounts", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Int64Var(&opts.deactivateID, "deactivate", 0, "id of the account to deactivate")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.deactivateID <= 0 {
		return opts, errors.New("-deactivate <id> is required")
	}
	return opts, nil
}

// accountService is the part of identity.Service the command drives
type accountService interface {
	Deactivate(ctx context.Context, id int64) error
}

func execute(ctx context.Context, svc accountService, opts options, out io.Writer) error {
	if err := svc.Deactivate(ctx, opts.deactivateID); err != nil {
		return fmt.Errorf("deactivate account %d: %w", opts.deactivateID, err)
	}
	fmt.Fprintf(out, "account %d deactivated\n", opts.deactivateID)
	return nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = factory.Close() }()

	tokens, err := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return err
	}

	repos := factory.NewRepositories()
	svc := identity.NewService(repos.Subjects, factory.GetTransactionManager(), tokens, identity.Config{
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger)

	return execute(ctx, svc, opts, out)
}
