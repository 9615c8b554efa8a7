package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptofolio/internal/app"
	"cryptofolio/internal/common"
	"cryptofolio/internal/server"
	"cryptofolio/internal/storage/memory"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (TOML)")
		devMode    = flag.Bool("dev", false, "run with in-memory storage instead of SurrealDB")
	)
	flag.Parse()

	// .env is optional; real config comes from TOML + environment.
	_ = godotenv.Load()

	if *configPath == "" {
		*configPath = os.Getenv("CRYPTOFOLIO_CONFIG")
	}

	config, err := common.LoadConfig(*configPath, "cryptofolio.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", config.Environment).
		Msg("Starting Cryptofolio")

	var a *app.App
	if *devMode {
		logger.Warn().Msg("Dev mode: using in-memory storage, data will not survive restart")
		a = app.NewWithStorage(config, logger, memory.NewManager())
	} else {
		a, err = app.New(config, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize application")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Scheduler.Enabled {
		a.Scheduler.Start(ctx)
	} else {
		logger.Info().Msg("Price refresh scheduler disabled by config")
	}

	srv := server.NewServer(a)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", config.Server.Port)).
		Msg("Server ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	if err := a.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close application cleanly")
	}
	logger.Info().Msg("Server stopped")
}
