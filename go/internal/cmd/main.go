package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg, err := loadConfig(os.Getenv("PARTY_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Context for graceful shutdown; open streams hang off it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	repo, database, closeStore, err := setupStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up store")
	}
	defer closeStore()

	bus, closeBus, err := setupBus(ctx, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up stamp bus")
	}
	defer closeBus()

	services := setupServices(repo, bus, clock, cfg)
	if err := services.Sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}

	server := setupServer(services, newHealthChecker(database, bus, services))
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	// Start HTTP server
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("max_players", cfg.Party.MaxPlayers).
			Dur("poll_interval", cfg.Feed.PollInterval).
			Msg("quiz party server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// End live feeds first so Shutdown is not held open by streams
	cancel()
	services.Connections.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := services.Sweeper.Stop(); err != nil {
		log.Warn().Err(err).Msg("sweeper stop")
	}

	log.Info().Msg("quiz party server shutdown complete")
}
