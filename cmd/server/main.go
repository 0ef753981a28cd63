package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"childhealth/internal/app/server/api"
	"childhealth/internal/app/server/config"
	"childhealth/internal/infrastructure/storage/postgres"
	"childhealth/internal/infrastructure/telemetry"
	"childhealth/internal/utils/logger"
)

const (
	serviceName     = "childhealth-server"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Stdout:      cfg.Telemetry.Stdout,
		ServiceName: serviceName,
		Version:     serviceVersion,
	})
	if err != nil {
		return err
	}

	storage, err := postgres.New(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      api.New(storage, cfg, log),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "address", cfg.HTTPServer.Address, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			shutdownTelemetry(shutdownCtx),
		)
	})

	return g.Wait()
}
