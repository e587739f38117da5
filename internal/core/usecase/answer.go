package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

const contextPreviewRunes = 100

// AnswerUseCase answers a question strictly from retrieved passages.
type AnswerUseCase struct {
	searcher  ports.DocumentSearcher
	generator ports.TextGenerator
	template  string
	diag      diagnostics.Emitter
}

func NewAnswerUseCase(
	searcher ports.DocumentSearcher,
	generator ports.TextGenerator,
	template string,
	sink diagnostics.Sink,
) *AnswerUseCase {
	return &AnswerUseCase{
		searcher:  searcher,
		generator: generator,
		template:  template,
		diag:      diagnostics.NewEmitter(sink),
	}
}

func (uc *AnswerUseCase) Answer(
	ctx context.Context,
	question string,
	k int,
	strategy domain.StrategyID,
) (*domain.Answer, error) {
	results, err := uc.searcher.Search(ctx, question, k, strategy)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	// Best mode already reported its comparison; per-document lines would
	// repeat the winner's results.
	if strategy != domain.StrategyBest {
		for i, r := range results {
			uc.diag.Emit(ctx, "document_retrieved",
				diagnostics.F("rank", i+1),
				diagnostics.F("distance", r.Distance),
				diagnostics.F("source", sourceLabel(r)),
				diagnostics.F("preview", preview(r.Content, contextPreviewRunes)),
			)
		}
	}

	text, err := uc.generator.Generate(ctx, uc.template, map[string]string{
		"context":  FormatContext(results),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:     strings.TrimSpace(text),
		Strategy: strategy,
		Sources:  results,
	}, nil
}

// FormatContext renders retrieved passages with their source and page,
// separated by horizontal rules.
func FormatContext(results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("%s\n(%s)", r.Content, sourceLabel(r)))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func sourceLabel(r domain.SearchResult) string {
	source := "N/A"
	if r.SourceID != "" {
		source = filepath.Base(r.SourceID)
	}
	page := "N/A"
	if r.Page != nil {
		page = strconv.Itoa(*r.Page)
	}
	return fmt.Sprintf("Source: %s, Page: %s", source, page)
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
