package ports

import (
	"context"
	"time"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

// TextGenerator fills a named-placeholder template and returns the model output.
type TextGenerator interface {
	Generate(ctx context.Context, template string, vars map[string]string) (string, error)
}

// RetrievalClient returns up to k results ordered by ascending distance.
type RetrievalClient interface {
	Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error)
}

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbour search over stored passages.
type VectorIndex interface {
	SearchByVector(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)
}

// SearchObserver receives per-search measurements.
type SearchObserver interface {
	ObserveSearch(strategy domain.StrategyID, duration time.Duration, results int, err error)
	ObserveOutcome(outcome domain.StrategyOutcome)
	ObserveBestWinner(winner domain.StrategyID)
}
