package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	mcpadapter "github.com/kirillkom/adaptive-retrieval/internal/adapters/mcp"
	"github.com/kirillkom/adaptive-retrieval/internal/bootstrap"
	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr at warn to keep it clean.
	logger, err := logging.NewConsole("warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	strategy, err := domain.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.Fatal("invalid_strategy", zap.String("strategy", cfg.Strategy), zap.Error(err))
	}

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Fatal("bootstrap_failed", zap.String("kind", domain.KindOf(err)), zap.Error(err))
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Searcher, app.Answerer, logger, mcpadapter.Options{
		DefaultStrategy: strategy,
		DefaultTopK:     cfg.TopK,
	})
	mcpServer := mcpadapter.NewServer("adaptive-retrieval", version, tools)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal("mcp_server_failed", zap.Error(err))
	}
}
