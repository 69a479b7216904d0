package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/7085ashishraj/Campus-Collab/internal/api"
	"github.com/7085ashishraj/Campus-Collab/internal/config"
	"github.com/7085ashishraj/Campus-Collab/internal/handlers"
	"github.com/7085ashishraj/Campus-Collab/internal/relay"
	"github.com/7085ashishraj/Campus-Collab/internal/store"
)

func main() {
	cfg := config.Load()

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	logger.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting server")

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startCancel()

	// Relational store: Postgres when configured, SQLite otherwise
	var db store.DataStore
	var err error
	if cfg.DatabaseURL != "" {
		db, err = store.NewPostgresStore(startCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		logger.Info().Msg("using PostgreSQL store")
	} else {
		db, err = store.NewSQLiteStore(startCtx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open SQLite store")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer db.Close()

	// Redis backs the message log, sessions, and rate limiting
	redis, err := store.NewRedisStore(startCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redis.Close()

	hub := relay.NewHub(logger)

	handlers.SessionTTL = cfg.SessionTTL
	h := handlers.NewHandler(db, redis, redis, hub, logger)
	h.SetServiceKeyHash(cfg.ServiceKeyHash)
	h.SetAllowedOrigins(cfg.AllowedOrigins)

	router := api.NewRouter(cfg, h, redis, db, redis, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := hub.Shutdown(10 * time.Second); err != nil {
		logger.Warn().Err(err).Msg("socket connections did not drain in time")
	}

	logger.Info().Msg("server stopped")
}
