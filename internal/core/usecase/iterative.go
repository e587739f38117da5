package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
	"github.com/kirillkom/adaptive-retrieval/internal/core/prompts"
)

const (
	refineRounds    = 2
	maxGapInfoItems = 5
)

// iterRetGenStrategy drafts an answer with gap markers, fills the gaps through
// retrieval-augmented rewrites and returns the query enriched with the draft.
//
// Phases: draft init, two refine rounds, expansion check, and one optional
// expansion refine when the check introduced new gaps.
type iterRetGenStrategy struct {
	generator     ports.TextGenerator
	retriever     ports.RetrievalClient
	prompts       prompts.Catalog
	diag          diagnostics.Emitter
	maxDraftRunes int
	expansion     bool
}

type refinementRound struct {
	Phase      string
	GapsBefore int
	GapsAfter  int
	Retrieved  int
}

type refinementTrace struct {
	InitialGaps int
	Rounds      []refinementRound
	Expanded    bool
	Draft       domain.Draft
}

func (s iterRetGenStrategy) Reformulate(ctx context.Context, query string, k int) (string, error) {
	trace, err := s.run(ctx, query, k)
	if err != nil {
		return "", err
	}
	return query + "\n\n" + trace.Draft.Text(), nil
}

func (s iterRetGenStrategy) run(ctx context.Context, query string, k int) (refinementTrace, error) {
	raw, err := s.generator.Generate(ctx, s.prompts.DraftInit, map[string]string{"query": query})
	if err != nil {
		return refinementTrace{}, fmt.Errorf("initial draft: %w", err)
	}
	draft := domain.NewDraft(raw).CapGaps(domain.MaxInitialGaps)
	trace := refinementTrace{InitialGaps: draft.GapCount()}
	s.diag.Emit(ctx, "draft_initialized", diagnostics.F("gaps", draft.GapCount()))

	for i := 1; i <= refineRounds; i++ {
		next, round, err := s.refine(ctx, query, draft, k, s.prompts.GapInfo, maxGapInfoItems)
		if err != nil {
			return refinementTrace{}, fmt.Errorf("refine round %d: %w", i, err)
		}
		round.Phase = fmt.Sprintf("refine-%d", i)
		trace.Rounds = append(trace.Rounds, round)
		s.emitRound(ctx, round)
		draft = next
	}

	if !s.expansion {
		trace.Draft = draft
		return trace, nil
	}

	raw, err = s.generator.Generate(ctx, s.prompts.Expansion, map[string]string{
		"query": query,
		"draft": draft.Text(),
	})
	if err != nil {
		return refinementTrace{}, fmt.Errorf("expansion check: %w", err)
	}
	reviewed := domain.NewDraft(raw)
	added := reviewed.GapCount() - reviewed.DropGapsNotIn(draft).GapCount()
	s.diag.Emit(ctx, "expansion_checked", diagnostics.F("new_gaps", added))
	if added == 0 {
		trace.Draft = draft
		return trace, nil
	}

	next, round, err := s.refine(ctx, query, reviewed, k, s.prompts.GapInfoExpansion, 0)
	if err != nil {
		return refinementTrace{}, fmt.Errorf("expansion refine: %w", err)
	}
	round.Phase = "expansion"
	trace.Rounds = append(trace.Rounds, round)
	trace.Expanded = true
	s.emitRound(ctx, round)
	trace.Draft = next
	return trace, nil
}

// refine runs one gap-info, retrieve, rewrite cycle. itemCap <= 0 leaves the
// gap-info output uncapped.
func (s iterRetGenStrategy) refine(
	ctx context.Context,
	query string,
	draft domain.Draft,
	k int,
	gapTemplate string,
	itemCap int,
) (domain.Draft, refinementRound, error) {
	round := refinementRound{GapsBefore: draft.GapCount()}

	info, err := s.generator.Generate(ctx, gapTemplate, map[string]string{
		"query": query,
		"draft": draft.Text(),
		"gaps":  strings.Join(draft.Topics(), "; "),
	})
	if err != nil {
		return draft, round, fmt.Errorf("gap info: %w", err)
	}
	info = capItems(info, itemCap)

	results, err := s.retriever.Search(ctx, query+"\n"+info, k)
	if err != nil {
		return draft, round, fmt.Errorf("retrieve gap context: %w", err)
	}
	round.Retrieved = len(results)

	raw, err := s.generator.Generate(ctx, s.prompts.Rewrite, map[string]string{
		"query":   query,
		"draft":   draft.Truncate(s.maxDraftRunes).Text(),
		"context": joinContents(results),
	})
	if err != nil {
		return draft, round, fmt.Errorf("rewrite draft: %w", err)
	}

	next := domain.NewDraft(raw)
	if next.Text() == "" {
		next = draft
	}
	next = next.DropGapsNotIn(draft)
	if round.GapsBefore > 0 && next.GapCount() >= round.GapsBefore {
		next = next.DemoteFirstGap()
	}
	round.GapsAfter = next.GapCount()
	return next, round, nil
}

func (s iterRetGenStrategy) emitRound(ctx context.Context, round refinementRound) {
	s.diag.Emit(ctx, "draft_refined",
		diagnostics.F("phase", round.Phase),
		diagnostics.F("gaps_before", round.GapsBefore),
		diagnostics.F("gaps_after", round.GapsAfter),
		diagnostics.F("retrieved", round.Retrieved),
	)
}

func capItems(text string, limit int) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func joinContents(results []domain.SearchResult) string {
	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	return strings.Join(contents, "\n\n")
}
