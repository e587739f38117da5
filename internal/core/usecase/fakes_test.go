package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

type generatorCall struct {
	template string
	vars     map[string]string
}

type generatorFake struct {
	mu      sync.Mutex
	calls   []generatorCall
	counts  map[string]int
	respond func(template string, n int, vars map[string]string) (string, error)
}

func (f *generatorFake) Generate(_ context.Context, template string, vars map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[template]++
	f.calls = append(f.calls, generatorCall{template: template, vars: vars})
	if f.respond == nil {
		return "generated", nil
	}
	return f.respond(template, f.counts[template], vars)
}

func (f *generatorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type retrieverFake struct {
	mu      sync.Mutex
	texts   []string
	ks      []int
	respond func(text string) ([]domain.SearchResult, error)
}

func (f *retrieverFake) Search(_ context.Context, text string, k int) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.ks = append(f.ks, k)
	if f.respond == nil {
		return []domain.SearchResult{{Content: "passage", SourceID: "doc.pdf", Distance: 0.1}}, nil
	}
	return f.respond(text)
}

func (f *retrieverFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type sinkFake struct {
	mu     sync.Mutex
	events []string
}

func (s *sinkFake) Emit(_ context.Context, event string, _ ...diagnostics.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *sinkFake) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type observerFake struct {
	mu       sync.Mutex
	searches []domain.StrategyID
	outcomes []domain.StrategyOutcome
	winners  []domain.StrategyID
	lastErr  error
}

func (o *observerFake) ObserveSearch(strategy domain.StrategyID, _ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.searches = append(o.searches, strategy)
	o.lastErr = err
}

func (o *observerFake) ObserveOutcome(outcome domain.StrategyOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *observerFake) ObserveBestWinner(winner domain.StrategyID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.winners = append(o.winners, winner)
}

func resultsWithDistances(distances ...float64) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(distances))
	for _, d := range distances {
		out = append(out, domain.SearchResult{Content: "c", SourceID: "s", Distance: d})
	}
	return out
}
