package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

// Client turns free text into nearest passages: embed the text, then ask the
// vector index for neighbours ordered by ascending distance.
type Client struct {
	embedder ports.Embedder
	index    ports.VectorIndex
}

func New(embedder ports.Embedder, index ports.VectorIndex) *Client {
	return &Client{embedder: embedder, index: index}
}

func (c *Client) Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieval search", fmt.Errorf("empty search text"))
	}
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieval search", fmt.Errorf("k must be positive, got %d", k))
	}

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, wrapRetrieval("embed query", err)
	}
	results, err := c.index.SearchByVector(ctx, vector, k)
	if err != nil {
		return nil, wrapRetrieval("vector search", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func wrapRetrieval(op string, err error) error {
	if domain.IsKind(err, domain.ErrRetrieval) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.WrapError(domain.ErrRetrieval, op, err)
}
