package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/npezzotti/go-eventchat/internal/api"
	"github.com/npezzotti/go-eventchat/internal/auth"
	"github.com/npezzotti/go-eventchat/internal/config"
	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/logging"
	"github.com/npezzotti/go-eventchat/internal/server"
	"github.com/npezzotti/go-eventchat/internal/stats"
	"github.com/rs/zerolog"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("info", logging.FormatJSON).Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open message store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close message store")
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux, logger)

	chatServer, err := server.NewChatServer(logger, store, server.NewPresence(), statsUpdater, cfg.PersistenceTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("new chat server")
	}

	srv := api.NewChatApp(mux, logger, chatServer, store, auth.NewJWTVerifier(cfg.SigningKey), cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("received signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server")
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown")
	}

	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Error().Err(err).Msg("chat server shutdown")
	}

	logger.Info().Msg("shutdown complete")
}

func openStore(cfg *config.Config, logger zerolog.Logger) (database.MessageStore, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory message store, messages will not survive a restart")
		return database.NewMemMessageStore(), nil
	}

	pg, err := database.NewPgMessageStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := database.Migrate(ctx, pg.DB()); err != nil {
			pg.Close()
			return nil, err
		}
	}

	return database.NewBreakerStore(pg, database.BreakerConfig{
		Name:             "message-store",
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}, logger), nil
}
