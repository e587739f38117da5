package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

// reformulator turns a user query into the text submitted to retrieval.
// k is the retrieval depth for strategies that search internally.
type reformulator interface {
	Reformulate(ctx context.Context, query string, k int) (string, error)
}

type passthroughStrategy struct{}

func (passthroughStrategy) Reformulate(_ context.Context, query string, _ int) (string, error) {
	return query, nil
}

// hydeStrategy searches with a hypothetical answer paragraph instead of the query.
type hydeStrategy struct {
	generator ports.TextGenerator
	template  string
}

func (s hydeStrategy) Reformulate(ctx context.Context, query string, _ int) (string, error) {
	doc, err := s.generator.Generate(ctx, s.template, map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("generate hypothetical document: %w", err)
	}
	return strings.TrimSpace(doc), nil
}

// query2docStrategy appends a neutral pseudo-document to the query.
type query2docStrategy struct {
	generator ports.TextGenerator
	template  string
}

func (s query2docStrategy) Reformulate(ctx context.Context, query string, _ int) (string, error) {
	passage, err := s.generator.Generate(ctx, s.template, map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("generate pseudo-document: %w", err)
	}
	return query + "\n\n" + strings.TrimSpace(passage), nil
}
