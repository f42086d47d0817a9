package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/auth-svc/config"
	httpx "github.com/target/auth-svc/internal/http"
	"golang.org/x/sync/errgroup"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	HTTP     config.HTTPConfig
	Identity httpx.IdentityServiceInterface
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server without starting it.
func NewHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := buildHTTPHandler(logger, httpx.RouterServices{
		Identity: cfg.Identity,
		Logger:   logger,
	})

	return &http.Server{
		Addr:              cfg.HTTP.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// buildHTTPHandler wraps the router. Order: Recover -> Logging -> Router.
func buildHTTPHandler(logger *slog.Logger, services httpx.RouterServices) http.Handler {
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

// ServeConfig groups parameters for Serve.
type ServeConfig struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Serve runs the server until ctx is canceled or the server fails, then shuts it down gracefully.
func Serve(ctx context.Context, cfg ServeConfig) error {
	if cfg.Server == nil {
		return errors.New("http server is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	return serveListener(ctx, ln, cfg, logger)
}

func serveListener(ctx context.Context, ln net.Listener, cfg ServeConfig, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := cfg.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Server:  cfg.Server,
			Timeout: cfg.ShutdownTimeout,
			Logger:  logger,
		})
	})

	return g.Wait()
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// The parent context is already canceled when shutdown starts.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
