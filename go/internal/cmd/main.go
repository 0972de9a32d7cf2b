package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(parseLogLevel(getEnv("LOG_LEVEL", "info")))

	config, err := loadConfig(getEnv("TEMPO_CONFIG", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, closeStore, err := setupStorage(ctx, getEnv("STORE_DRIVER", "sqlite"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up storage")
	}
	defer closeStore()

	services, err := setupServices(ctx, config, repo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	go services.Gateway.Start(ctx)

	server := setupServer(services, NewHealthChecker(repo, services))
	go func() {
		log.Info().Str("addr", server.Addr).Msg("tempo server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second))
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down server")
	}
}
