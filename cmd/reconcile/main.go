// Command reconcile runs a single C7 reconciliation sweep and exits, for use
// from cron or an operator shell rather than the long-running server process
// (modeled on the teacher's cmd/tests/* stand-alone driver pattern).
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/pkg/sbc"
)

func main() {
	transactionID := flag.String("transaction", "", "reconcile a single transactionId instead of the full stuck-withdrawal batch")
	flag.Parse()

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
		Service: "reconcile-cli", Version: cfg.Logging.Version,
		Environment: cfg.Logging.Environment,
	})

	app, err := sbc.NewApp(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to wire application")
	}
	defer app.Close()

	ctx := logger.WithContext(context.Background(), appLogger)

	if *transactionID != "" {
		if err := app.Reconcile.RunManualSweepOne(ctx, *transactionID); err != nil {
			appLogger.Fatal().Err(err).Str("transactionId", *transactionID).Msg("manual reconcile failed")
		}
		appLogger.Info().Str("transactionId", *transactionID).Msg("manual reconcile complete")
		return
	}

	app.Reconcile.RunManualSweep(ctx)
	appLogger.Info().Msg("manual sweep complete")
}
