// Package main is the entry point for signalbridge, the trading-signal
// extraction service. It tails Telegram signal channels, extracts
// structured signals from free-form messages, and serves them to trading
// clients over a pull/acknowledge HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akaramanis/signalbridge/internal/archive"
	"github.com/akaramanis/signalbridge/internal/config"
	"github.com/akaramanis/signalbridge/internal/database"
	"github.com/akaramanis/signalbridge/internal/extraction"
	"github.com/akaramanis/signalbridge/internal/pipeline"
	"github.com/akaramanis/signalbridge/internal/scheduler"
	"github.com/akaramanis/signalbridge/internal/server"
	"github.com/akaramanis/signalbridge/internal/sink"
	"github.com/akaramanis/signalbridge/internal/source"
	"github.com/akaramanis/signalbridge/internal/store"
	"github.com/akaramanis/signalbridge/pkg/logger"
)

// main orchestrates the startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Load the extraction policy (YAML, falls back to built-in defaults)
//  4. Open the archive ledger and the delivery store snapshot
//  5. Start the pipeline worker, the Telegram source, and the scheduler
//  6. Start the HTTP server and wait for a shutdown signal
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting signalbridge")

	// Extraction policy
	extractionCfg, err := config.LoadExtraction(cfg.ExtractionConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load extraction policy")
	}
	extractor := extraction.New(extractionCfg, log)

	// Archive ledger (append-only audit trail of every extraction outcome)
	archiveDB, err := database.New(database.Config{
		Path:    cfg.ArchiveDBPath,
		Profile: database.ProfileLedger,
		Name:    "archive",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open archive database")
	}
	defer archiveDB.Close()

	if err := archive.InitSchema(archiveDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize archive schema")
	}
	archiveRepo := archive.NewRepository(archiveDB.Conn(), log)

	// Delivery store (pending/acknowledged lifecycle, snapshot-backed)
	signalStore := store.New(store.Options{
		SnapshotPath: cfg.SnapshotPath,
		MaxAge:       time.Duration(cfg.MaxSignalAgeHours) * time.Hour,
		Log:          log,
	})

	// Flat-file sinks
	csvSink, err := sink.NewCSVWriter(cfg.CSVPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize CSV sink")
	}
	errorSink, err := sink.NewJSONLWriter(cfg.ErrorLogPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize error log sink")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pipeline worker
	messages := make(chan pipeline.Message, 256)
	processor := pipeline.New(pipeline.Config{
		Extractor: extractor,
		Store:     signalStore,
		Archive:   archiveRepo,
		Signals:   csvSink,
		Errors:    errorSink,
		In:        messages,
		Log:       log,
	})
	go processor.Run(ctx)

	// Telegram source (optional: without a token the service still serves
	// the API, useful for replay and development)
	if cfg.TelegramBotToken != "" {
		channels := extractionCfg.Channels
		if len(cfg.TelegramChannels) > 0 {
			channels = cfg.TelegramChannels
		}
		listener, err := source.NewTelegramListener(
			cfg.TelegramBotToken,
			channels,
			messages,
			extractor.IsSignal,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect Telegram source")
		}
		go listener.Run(ctx)
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, running without a message source")
	}

	// Background maintenance
	sched := scheduler.New(log)
	sweep := scheduler.NewSweepJob(signalStore, log)
	if err := sched.AddJob(cfg.SweepSchedule, sweep); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep job")
	}
	if err := sched.AddJob("@hourly", scheduler.NewCheckpointJob(archiveDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register checkpoint job")
	}
	if err := sched.AddJob("@daily", scheduler.NewIntegrityJob(archiveDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register integrity job")
	}
	// Expire anything that aged out while the service was down before the
	// first poll can observe it.
	if err := sched.RunNow(sweep); err != nil {
		log.Error().Err(err).Msg("Startup sweep failed")
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:     log,
		Store:   signalStore,
		Health:  archiveDB,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
