package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
	"github.com/kirillkom/adaptive-retrieval/internal/core/prompts"
	"github.com/kirillkom/adaptive-retrieval/internal/core/usecase"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm/cache"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/retrieval"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/adaptive-retrieval/internal/observability/logging"
)

type Options struct {
	Logger   *zap.Logger
	Observer ports.SearchObserver
}

type App struct {
	Config config.Config
	Logger *zap.Logger

	Searcher ports.DocumentSearcher
	Comparer ports.StrategyComparer
	Answerer ports.QuestionAnswerer

	closers []func()
}

// New wires the local retrieval stack. Credentials are checked before any
// backend is contacted.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.CheckCredentials(); err != nil {
		return nil, err
	}
	app := newApp(cfg, opts)
	executor := resilience.NewExecutor(cfg.Resilience(), app.Logger)
	providers := newProviderSet(cfg, executor)

	generator, err := app.generator(ctx, providers)
	if err != nil {
		app.Close()
		return nil, err
	}
	embedder, err := providers.embedder(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	index, err := app.vectorIndex(ctx, executor)
	if err != nil {
		app.Close()
		return nil, err
	}

	catalog := prompts.Default()
	sink := logging.NewDiagnosticsSink(app.Logger)
	search := usecase.NewSearchUseCase(generator, retrieval.New(embedder, index), catalog, sink, opts.Observer, cfg.Limits())

	app.Searcher = search
	app.Comparer = search
	app.Answerer = usecase.NewAnswerUseCase(search, generator, catalog.Answer, sink)
	return app, nil
}

// NewRemote answers questions locally but sends every search to a worker
// over NATS.
func NewRemote(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.CheckGenerationCredentials(); err != nil {
		return nil, err
	}
	app := newApp(cfg, opts)
	executor := resilience.NewExecutor(cfg.Resilience(), app.Logger)

	generator, err := app.generator(ctx, newProviderSet(cfg, executor))
	if err != nil {
		app.Close()
		return nil, err
	}
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             app.Logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closers = append(app.closers, queue.Close)

	remote := nats.NewRemoteSearcher(queue)
	app.Searcher = remote
	app.Comparer = remote
	app.Answerer = usecase.NewAnswerUseCase(remote, generator, prompts.Default().Answer, logging.NewDiagnosticsSink(app.Logger))
	return app, nil
}

func newApp(cfg config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{Config: cfg, Logger: logger}
}

func (a *App) generator(ctx context.Context, providers *providerSet) (ports.TextGenerator, error) {
	generator, model, err := providers.generator(ctx)
	if err != nil {
		return nil, err
	}
	if a.Config.RedisURL == "" {
		return generator, nil
	}
	client, err := cache.NewClient(a.Config.RedisURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "redis url", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Logger.Info("generation_cache_enabled", zap.String("model", model), zap.Duration("ttl", a.Config.GenerationCacheTTL))
	return cache.NewGenerator(generator, client, model, a.Config.GenerationCacheTTL, a.Logger), nil
}

func (a *App) vectorIndex(ctx context.Context, executor *resilience.Executor) (ports.VectorIndex, error) {
	switch a.Config.VectorBackend {
	case config.BackendQdrant:
		index, err := qdrant.New(ctx, a.Config.QdrantGRPCURL, a.Config.QdrantAPIKey, a.Config.Collection, executor)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = index.Close() })
		if err := a.checkCollection(ctx, index); err != nil {
			return nil, err
		}
		return index, nil
	default:
		db, err := postgres.OpenDB(ctx, a.Config.DatabaseDSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		index := postgres.NewEmbeddingIndex(db, a.Config.Collection, executor)
		if err := a.checkCollection(ctx, index); err != nil {
			return nil, err
		}
		a.Logger.Info("vector_store_connected", zap.String("backend", config.BackendPGVector), zap.String("collection", a.Config.Collection))
		return index, nil
	}
}

type collectionChecker interface {
	CollectionExists(ctx context.Context) (bool, error)
}

// checkCollection fails on an unreachable index. A missing collection only
// warns: searches against it return no passages.
func (a *App) checkCollection(ctx context.Context, checker collectionChecker) error {
	ok, err := checker.CollectionExists(ctx)
	switch {
	case domain.IsKind(err, domain.ErrConnection):
		return err
	case err != nil:
		a.Logger.Warn("collection_check_failed", zap.String("collection", a.Config.Collection), zap.Error(err))
	case !ok:
		a.Logger.Warn("collection_missing", zap.String("collection", a.Config.Collection))
	}
	return nil
}

// Verbose returns ctx with diagnostics enabled when configured.
func (a *App) Verbose(ctx context.Context) context.Context {
	return diagnostics.WithVerbose(ctx, a.Config.Verbose)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
