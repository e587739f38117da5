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

	"github.com/kirillkom/adaptive-retrieval/internal/bootstrap"
	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/logging"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/metrics"
)

const serviceName = "retrieval-worker"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Observer: workerMetrics.Search()})
	if err != nil {
		logger.Fatal("bootstrap_failed", zap.String("kind", domain.KindOf(err)), zap.Error(err))
	}
	defer app.Close()

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(cfg.Resilience(), logger),
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal("nats_connect_failed", zap.Error(err))
	}
	defer queue.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", zap.Error(err))
		}
	}()

	handler := nats.NewSearchHandler(app.Searcher, app.Comparer)
	logger.Info("worker_subscribed", zap.String("subject", cfg.NATSSubject))
	err = queue.Serve(ctx, func(handlerCtx context.Context, data []byte) ([]byte, error) {
		requestCtx, cancel := context.WithTimeout(handlerCtx, cfg.NATSTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartRequest()
		reply, err := handler.Handle(requestCtx, data)
		workerMetrics.FinishRequest(serviceName, time.Since(start), err)
		return reply, err
	})
	if err != nil {
		logger.Error("worker_serve_failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
