package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/api"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/logging"
)

// shutdownTimeout bounds how long in-flight requests may take to drain
const shutdownTimeout = 30 * time.Second

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(flags *ServeFlags) error {
	cfg := flags.LoadConfig()
	if flags.Port > 0 {
		cfg.Server.Port = flags.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, flags.Verbose)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Error("close failed", slog.Any("error", err))
		}
	}()

	logger := app.Logger.With(logging.SystemKey, "api")
	server := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, app.Store, app.Service, app.Settings, logger)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	err = <-serveErr
	logger.Info("server stopped")
	return err
}
