package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/costnav/costnav/internal/api"
	"github.com/costnav/costnav/internal/auth"
	"github.com/costnav/costnav/internal/config"
	"github.com/costnav/costnav/internal/directory"
	directorypostgres "github.com/costnav/costnav/internal/directory/postgres"
	"github.com/costnav/costnav/internal/nl2sql"
	"github.com/costnav/costnav/internal/observability"
	querypostgres "github.com/costnav/costnav/internal/query/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("costnav-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := directorypostgres.Open(context.Background(), directorypostgres.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open directory db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	repo := directorypostgres.NewRepository(db)

	deps := api.Dependencies{
		Logger:        logger,
		HealthCheck:   repo.HealthCheck,
		HealthTimeout: time.Second,
		Directory:     directory.NewService(repo),
		QueryEngine:   querypostgres.NewEngine(db, cfg.Query.Timeout, cfg.Query.MaxRows),
	}
	if cfg.AI.APIKey != "" {
		ai, err := nl2sql.NewOpenAIClient(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize ai client", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Translator = ai
		deps.Answerer = ai
	} else {
		logger.Warn("COSTNAV_AI_API_KEY is not set; POST /ask will report not configured")
	}
	if cfg.Auth.StaticKeys != "" {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
