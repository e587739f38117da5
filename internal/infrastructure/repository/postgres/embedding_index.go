package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

// EmbeddingIndex searches passages stored by the ingestion pipeline in the
// langchain_pg_collection / langchain_pg_embedding tables with pgvector.
type EmbeddingIndex struct {
	db         *sql.DB
	collection string
	executor   *resilience.Executor
}

func NewEmbeddingIndex(db *sql.DB, collection string, executor *resilience.Executor) *EmbeddingIndex {
	return &EmbeddingIndex{db: db, collection: collection, executor: executor}
}

// CollectionExists reports whether the configured collection has been created.
func (r *EmbeddingIndex) CollectionExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM langchain_pg_collection WHERE name = $1)`,
		r.collection,
	).Scan(&exists)
	if err != nil {
		return false, domain.WrapError(domain.ErrConnection, "check collection", err)
	}
	return exists, nil
}

// SearchByVector returns the k nearest passages by cosine distance.
func (r *EmbeddingIndex) SearchByVector(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "pgvector search", errors.New("empty query vector"))
	}
	results, err := resilience.Call(ctx, r.executor, "pgvector.search", func(ctx context.Context) ([]domain.SearchResult, error) {
		return r.search(ctx, vector, k)
	}, llm.Classify)
	if err != nil {
		return nil, llm.WrapFailure(domain.ErrRetrieval, "pgvector search", err)
	}
	return results, nil
}

func (r *EmbeddingIndex) search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	const query = `
SELECT e.document, e.cmetadata, e.embedding <=> $1::vector AS distance
FROM langchain_pg_embedding e
JOIN langchain_pg_collection c ON c.uuid = e.collection_id
WHERE c.name = $2
ORDER BY distance ASC
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, formatVector(vector), r.collection, k)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, k)
	for rows.Next() {
		var (
			content  sql.NullString
			metadata []byte
			distance float64
		)
		if err := rows.Scan(&content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		result := domain.SearchResult{Content: content.String, Distance: distance}
		result.SourceID, result.Page = parseMetadata(metadata)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding rows: %w", err)
	}
	return results, nil
}

func formatVector(vector []float32) string {
	var b strings.Builder
	b.Grow(len(vector) * 10)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func parseMetadata(raw []byte) (string, *int) {
	if len(raw) == 0 {
		return "", nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", nil
	}
	source, _ := meta["source"].(string)

	var page *int
	switch v := meta["page"].(type) {
	case float64:
		p := int(v)
		page = &p
	case string:
		if p, err := strconv.Atoi(v); err == nil {
			page = &p
		}
	}
	return source, page
}
