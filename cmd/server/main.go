package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upb/smart-city-assistant/app"
	"github.com/upb/smart-city-assistant/config"
	"github.com/upb/smart-city-assistant/internal/observability"
	"github.com/upb/smart-city-assistant/routes"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		_ = logger.Sync()
		return err
	}

	srv := newServer(cfg, routes.SetupRoutes(deps))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	return shutdown(srv, deps, cfg.Server.ShutdownTimeout)
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// shutdown drains in-flight requests, then releases dependencies
func shutdown(srv *http.Server, deps *app.Dependencies, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := deps.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
