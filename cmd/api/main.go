package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpadapter "github.com/kirillkom/adaptive-retrieval/internal/adapters/http"
	"github.com/kirillkom/adaptive-retrieval/internal/bootstrap"
	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/logging"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/metrics"
)

const serviceName = "retrieval-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := logging.New(serviceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := domain.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.Fatal("invalid_strategy", zap.String("strategy", cfg.Strategy), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Observer: httpMetrics.Search()})
	if err != nil {
		logger.Fatal("bootstrap_failed", zap.String("kind", domain.KindOf(err)), zap.Error(err))
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Searcher, app.Comparer, app.Answerer, httpMetrics.Handler(), logger, httpadapter.Options{
		DefaultStrategy: strategy,
		Verbose:         cfg.Verbose,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		MaxInFlight:     32,
		CORSOrigins:     cfg.CORSAllowedOrigins,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      httpMetrics.Middleware(serviceName, router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", zap.String("port", cfg.APIPort), zap.String("strategy", string(strategy)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", zap.Error(err))
	}
}
