package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
	"github.com/kirillkom/adaptive-retrieval/internal/core/prompts"
)

// SearchUseCase dispatches a query to a reformulation strategy and runs the
// resulting search. In best mode it evaluates every candidate strategy and
// keeps the one with the lowest average distance.
type SearchUseCase struct {
	retriever  ports.RetrievalClient
	strategies map[domain.StrategyID]reformulator
	candidates []domain.StrategyID
	limits     domain.RetrievalLimits
	diag       diagnostics.Emitter
	observer   ports.SearchObserver
}

func NewSearchUseCase(
	generator ports.TextGenerator,
	retriever ports.RetrievalClient,
	catalog prompts.Catalog,
	sink diagnostics.Sink,
	observer ports.SearchObserver,
	limits domain.RetrievalLimits,
) *SearchUseCase {
	if limits.DefaultTopK <= 0 {
		limits.DefaultTopK = 10
	}
	if limits.MaxDraftRunes <= 0 {
		limits.MaxDraftRunes = 6000
	}
	if observer == nil {
		observer = noopObserver{}
	}
	diag := diagnostics.NewEmitter(sink)

	return &SearchUseCase{
		retriever: retriever,
		strategies: map[domain.StrategyID]reformulator{
			domain.StrategyPassthrough: passthroughStrategy{},
			domain.StrategyHyDE:        hydeStrategy{generator: generator, template: catalog.HyDE},
			domain.StrategyQuery2Doc:   query2docStrategy{generator: generator, template: catalog.Query2Doc},
			domain.StrategyIterRetGen: iterRetGenStrategy{
				generator:     generator,
				retriever:     retriever,
				prompts:       catalog,
				diag:          diag,
				maxDraftRunes: limits.MaxDraftRunes,
				expansion:     !limits.DisableExpansion,
			},
		},
		candidates: []domain.StrategyID{
			domain.StrategyPassthrough,
			domain.StrategyHyDE,
			domain.StrategyQuery2Doc,
		},
		limits:   limits,
		diag:     diag,
		observer: observer,
	}
}

func (uc *SearchUseCase) Search(
	ctx context.Context,
	query string,
	k int,
	strategy domain.StrategyID,
) ([]domain.SearchResult, error) {
	started := time.Now()
	results, err := uc.search(ctx, query, k, strategy)
	uc.observer.ObserveSearch(strategy, time.Since(started), len(results), err)
	return results, err
}

// Reformulate returns the text a strategy would submit to retrieval.
func (uc *SearchUseCase) Reformulate(ctx context.Context, query string, strategy domain.StrategyID) (string, error) {
	if err := validateQuery(query); err != nil {
		return "", err
	}
	if strategy == domain.StrategyBest {
		return "", fmt.Errorf("%w: best mode has no single reformulation", domain.ErrInvalidInput)
	}
	r, err := uc.strategy(strategy)
	if err != nil {
		return "", err
	}
	text, err := r.Reformulate(ctx, query, uc.limits.DefaultTopK)
	if err != nil {
		return "", fmt.Errorf("%s reformulate: %w", strategy, err)
	}
	return text, nil
}

// Compare evaluates every best-mode candidate and reports the winner.
func (uc *SearchUseCase) Compare(ctx context.Context, query string, k int) (domain.Comparison, error) {
	if err := validateQuery(query); err != nil {
		return domain.Comparison{}, err
	}
	return uc.compare(ctx, query, uc.topK(k))
}

func (uc *SearchUseCase) search(
	ctx context.Context,
	query string,
	k int,
	strategy domain.StrategyID,
) ([]domain.SearchResult, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	k = uc.topK(k)

	if strategy == domain.StrategyBest {
		cmp, err := uc.compare(ctx, query, k)
		if err != nil {
			return nil, err
		}
		return cmp.Results(), nil
	}

	uc.diag.Emit(ctx, "strategy_selected", diagnostics.F("strategy", string(strategy)))
	outcome, err := uc.evaluate(ctx, strategy, query, k)
	if err != nil {
		return nil, err
	}
	uc.diag.Emit(ctx, "search_completed",
		diagnostics.F("strategy", string(strategy)),
		diagnostics.F("results", len(outcome.Results)),
	)
	return outcome.Results, nil
}

// evaluate runs one strategy end to end. It touches no shared state, so best
// mode can call it for every candidate.
func (uc *SearchUseCase) evaluate(
	ctx context.Context,
	strategy domain.StrategyID,
	query string,
	k int,
) (domain.StrategyOutcome, error) {
	r, err := uc.strategy(strategy)
	if err != nil {
		return domain.StrategyOutcome{}, err
	}

	text, err := r.Reformulate(ctx, query, k)
	if err != nil {
		return domain.StrategyOutcome{}, fmt.Errorf("%s reformulate: %w", strategy, err)
	}
	uc.diag.Emit(ctx, "query_reformulated",
		diagnostics.F("strategy", string(strategy)),
		diagnostics.F("text", text),
	)

	results, err := uc.retriever.Search(ctx, text, k)
	if err != nil {
		return domain.StrategyOutcome{}, fmt.Errorf("%s search: %w", strategy, err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return domain.NewStrategyOutcome(strategy, results), nil
}

func (uc *SearchUseCase) compare(ctx context.Context, query string, k int) (domain.Comparison, error) {
	uc.diag.Emit(ctx, "best_mode_started", diagnostics.F("candidates", len(uc.candidates)))

	inner := diagnostics.Suppress(ctx)
	outcomes := make([]domain.StrategyOutcome, len(uc.candidates))
	if uc.limits.ParallelBest {
		g, gctx := errgroup.WithContext(inner)
		for i, id := range uc.candidates {
			g.Go(func() error {
				outcome, err := uc.evaluate(gctx, id, query, k)
				if err != nil {
					return err
				}
				outcomes[i] = outcome
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return domain.Comparison{}, fmt.Errorf("best mode: %w", err)
		}
	} else {
		for i, id := range uc.candidates {
			outcome, err := uc.evaluate(inner, id, query, k)
			if err != nil {
				return domain.Comparison{}, fmt.Errorf("best mode: %w", err)
			}
			outcomes[i] = outcome
		}
	}

	for _, o := range outcomes {
		uc.observer.ObserveOutcome(o)
		uc.diag.Emit(ctx, "candidate_evaluated",
			diagnostics.F("strategy", string(o.Strategy)),
			diagnostics.F("results", len(o.Results)),
			diagnostics.F("average_distance", o.AverageDistance),
		)
	}

	cmp := domain.Comparison{Outcomes: outcomes}
	winner, ok := selectBest(outcomes)
	if !ok {
		uc.diag.Emit(ctx, "best_mode_no_results")
		return cmp, nil
	}
	cmp.Winner = winner.Strategy
	uc.observer.ObserveBestWinner(winner.Strategy)
	uc.diag.Emit(ctx, "best_strategy_selected",
		diagnostics.F("strategy", string(winner.Strategy)),
		diagnostics.F("average_distance", winner.AverageDistance),
	)
	return cmp, nil
}

func (uc *SearchUseCase) strategy(id domain.StrategyID) (reformulator, error) {
	r, ok := uc.strategies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, string(id))
	}
	return r, nil
}

func (uc *SearchUseCase) topK(k int) int {
	if k <= 0 {
		return uc.limits.DefaultTopK
	}
	return k
}

// selectBest scans left to right and keeps the first strictly lower average.
// Outcomes without results never win.
func selectBest(outcomes []domain.StrategyOutcome) (domain.StrategyOutcome, bool) {
	best := -1
	bestAvg := math.Inf(1)
	for i, o := range outcomes {
		if o.AverageDistance < bestAvg {
			best = i
			bestAvg = o.AverageDistance
		}
	}
	if best < 0 {
		return domain.StrategyOutcome{}, false
	}
	return outcomes[best], true
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	return nil
}

type noopObserver struct{}

func (noopObserver) ObserveSearch(domain.StrategyID, time.Duration, int, error) {}
func (noopObserver) ObserveOutcome(domain.StrategyOutcome)                       {}
func (noopObserver) ObserveBestWinner(domain.StrategyID)                         {}
