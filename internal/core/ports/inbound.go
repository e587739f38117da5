package ports

import (
	"context"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

// DocumentSearcher is the inbound contract for strategy-driven retrieval.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, k int, strategy domain.StrategyID) ([]domain.SearchResult, error)
	Reformulate(ctx context.Context, query string, strategy domain.StrategyID) (string, error)
}

// StrategyComparer evaluates every best-mode candidate for a query.
type StrategyComparer interface {
	Compare(ctx context.Context, query string, k int) (domain.Comparison, error)
}

// QuestionAnswerer is the inbound contract for grounded answer generation.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, k int, strategy domain.StrategyID) (*domain.Answer, error)
}
