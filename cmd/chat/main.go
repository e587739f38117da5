package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/adapters/cli"
	"github.com/kirillkom/adaptive-retrieval/internal/bootstrap"
	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	provider := flag.String("provider", cfg.Provider, "LLM provider: google, openai, anthropic or ollama")
	strategyFlag := flag.String("strategy", cfg.Strategy, "search strategy: default, hyde, query2doc, iter-retgen or best")
	collection := flag.String("collection", cfg.Collection, "vector store collection name")
	k := flag.Int("k", cfg.TopK, "number of passages to retrieve")
	verbose := flag.Bool("v", cfg.Verbose, "print retrieval diagnostics and sources")
	remote := flag.Bool("remote", false, "send searches to a worker over NATS")
	flag.Parse()

	strategy, err := domain.ParseStrategy(*strategyFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 2
	}
	cfg, err = cfg.WithProvider(*provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 2
	}
	cfg.Collection = *collection
	cfg.Verbose = *verbose

	level := "warn"
	if *verbose {
		level = "info"
	}
	logger, err := logging.NewConsole(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := bootstrap.New
	if *remote {
		build = bootstrap.NewRemote
	}
	app, err := build(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Initialization error: %v\n", err)
		}
		return 1
	}
	defer app.Close()

	ctx = diagnostics.WithVerbose(ctx, *verbose)
	banner := fmt.Sprintf("--- Document chat (provider: %s, collection: %s, strategy: %s) ---", cfg.Provider, cfg.Collection, strategy)
	if err := cli.NewChat(app.Answerer, strategy, *k, os.Stdin, os.Stdout, logger).Run(ctx, banner); err != nil {
		logger.Error("chat_input_failed", zap.Error(err))
		return 1
	}
	return 0
}
