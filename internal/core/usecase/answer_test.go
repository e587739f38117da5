package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

type searcherFake struct {
	strategy domain.StrategyID
	k        int
	results  []domain.SearchResult
	err      error
}

func (f *searcherFake) Search(_ context.Context, _ string, k int, strategy domain.StrategyID) ([]domain.SearchResult, error) {
	f.k = k
	f.strategy = strategy
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *searcherFake) Reformulate(_ context.Context, query string, _ domain.StrategyID) (string, error) {
	return query, nil
}

func intPtr(v int) *int { return &v }

func TestFormatContext(t *testing.T) {
	got := FormatContext([]domain.SearchResult{
		{Content: "first", SourceID: "/data/handbook.pdf", Page: intPtr(3)},
		{Content: "second"},
	})
	want := "first\n(Source: handbook.pdf, Page: 3)\n\n---\n\nsecond\n(Source: N/A, Page: N/A)"
	if got != want {
		t.Fatalf("FormatContext() = %q, want %q", got, want)
	}
}

func TestAnswerUseCaseAnswer(t *testing.T) {
	searcher := &searcherFake{results: []domain.SearchResult{{Content: "30 days", SourceID: "policy.pdf", Distance: 0.2}}}
	gen := &generatorFake{respond: func(string, int, map[string]string) (string, error) {
		return " Employees get 30 days. ", nil
	}}
	sink := &sinkFake{}
	uc := NewAnswerUseCase(searcher, gen, "answer {context} {question}", sink)
	ctx := diagnostics.WithVerbose(context.Background(), true)

	answer, err := uc.Answer(ctx, testQuery, 3, domain.StrategyHyDE)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "Employees get 30 days." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if answer.Strategy != domain.StrategyHyDE || len(answer.Sources) != 1 {
		t.Fatalf("unexpected answer metadata: %+v", answer)
	}
	if searcher.k != 3 || searcher.strategy != domain.StrategyHyDE {
		t.Fatalf("unexpected search args k=%d strategy=%s", searcher.k, searcher.strategy)
	}
	vars := gen.calls[0].vars
	if vars["question"] != testQuery || !strings.Contains(vars["context"], "Source: policy.pdf") {
		t.Fatalf("unexpected generation vars: %v", vars)
	}
	if sink.count("document_retrieved") != 1 {
		t.Fatalf("expected per-document diagnostics, got %v", sink.events)
	}
}

func TestAnswerUseCaseBestModeSkipsDocumentDiagnostics(t *testing.T) {
	searcher := &searcherFake{results: []domain.SearchResult{{Content: "a"}, {Content: "b"}}}
	sink := &sinkFake{}
	uc := NewAnswerUseCase(searcher, &generatorFake{}, "t", sink)
	ctx := diagnostics.WithVerbose(context.Background(), true)

	if _, err := uc.Answer(ctx, testQuery, 3, domain.StrategyBest); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if sink.count("document_retrieved") != 0 {
		t.Fatalf("expected no per-document diagnostics in best mode, got %v", sink.events)
	}
}

func TestAnswerUseCaseSearchError(t *testing.T) {
	searcher := &searcherFake{err: domain.WrapError(domain.ErrRetrieval, "search", errors.New("down"))}
	gen := &generatorFake{}
	uc := NewAnswerUseCase(searcher, gen, "t", nil)

	_, err := uc.Answer(context.Background(), testQuery, 3, domain.StrategyPassthrough)
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected no generation after search failure")
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	if got := preview("ééééé", 2); got != "éé..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := preview("short", 10); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}
}
