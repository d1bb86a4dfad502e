// Command server runs the Payment & Commission Engine as a standalone HTTP
// service: load config, wire the app, serve, and drain in-flight requests on
// SIGTERM/SIGINT (§6).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/pkg/sbc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, continuing with process environment: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yaml"
	}

	cfg, err := sbc.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level: cfg.Logging.Level, Format: cfg.Logging.Format,
		Service: "payment-commission-engine", Version: cfg.Logging.Version,
		Environment: cfg.Logging.Environment,
	})

	app, err := sbc.NewApp(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to wire application")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info().Str("address", cfg.Server.Address).Msg("payment-commission-engine listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErr:
		appLogger.Fatal().Err(err).Msg("server failed")
	case sig := <-stop:
		appLogger.Info().Str("signal", sig.String()).Msg("shutdown signal received, draining")
	}

	grace := cfg.Server.ShutdownGracePeriod.Duration
	if grace <= 0 {
		grace = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = httpServer.Close()
	}

	if err := app.Close(); err != nil {
		appLogger.Error().Err(err).Msg("error closing application resources")
		os.Exit(1)
	}

	appLogger.Info().Msg("shutdown complete")
}
