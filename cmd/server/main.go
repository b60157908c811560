package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notwins/backend/config"
	httpDelivery "github.com/notwins/backend/internal/delivery/http"
	"github.com/notwins/backend/internal/infrastructure/metrics"
	"github.com/notwins/backend/internal/infrastructure/provider"
	"github.com/notwins/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting notwins backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.String("render_backend", cfg.Render.Backend),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	providers, err := provider.NewFactory(cfg, m, logger).Build(ctx)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}
	defer func() {
		if err := providers.Close(); err != nil {
			logger.Warn("closing providers", zap.Error(err))
		}
	}()

	extraction := usecase.NewExtractionService(usecase.ExtractionDeps{
		Cache:       providers.Cache,
		Profiles:    providers.Registry,
		Fetcher:     providers.Fetcher,
		APIClient:   providers.Fetcher,
		Renderer:    providers.Renderer,
		Interpreter: providers.Interpreter,
		Metrics:     m,
		Logger:      logger,
	}, usecase.ExtractionServiceConfig{
		CacheTTL:         cfg.Cache.TTL,
		BatchConcurrency: cfg.Extraction.BatchConcurrency,
		EnrichWithAI:     cfg.Extraction.EnrichWithAI,
		HTMLExcerptChars: cfg.AI.HTMLExcerptChars,
	})

	matching := usecase.NewMatchingService(providers.Interpreter, providers.Cache, usecase.MatchConfig{
		SimilarThreshold:   cfg.Matching.SimilarThreshold,
		DuplicateThreshold: cfg.Matching.DuplicateThreshold,
		ExactThreshold:     cfg.Matching.ExactThreshold,
		MaxCandidates:      cfg.Matching.MaxCandidates,
		CacheTTL:           cfg.Cache.TTL,
	}, m, logger)

	var aiProbe httpDelivery.HealthProbe
	if providers.AIClient != nil && providers.AIClient.Enabled() {
		aiProbe = providers.AIClient
	}

	handler := httpDelivery.NewHandler(extraction, matching, aiProbe, logger)
	router := httpDelivery.SetupRouter(cfg, handler, m.Handler(), logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Server.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
