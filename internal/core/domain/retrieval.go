package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type StrategyID string

const (
	StrategyPassthrough StrategyID = "passthrough"
	StrategyHyDE        StrategyID = "hyde"
	StrategyQuery2Doc   StrategyID = "query2doc"
	StrategyIterRetGen  StrategyID = "iter-retgen"
	StrategyBest        StrategyID = "best"
)

// Strategies lists every selectable strategy in display order.
func Strategies() []StrategyID {
	return []StrategyID{
		StrategyPassthrough,
		StrategyHyDE,
		StrategyQuery2Doc,
		StrategyIterRetGen,
		StrategyBest,
	}
}

// ParseStrategy resolves a user-supplied strategy name. "default" is accepted
// as an alias of passthrough.
func ParseStrategy(raw string) (StrategyID, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "", "default":
		return StrategyPassthrough, nil
	case "iter_retgen", "iterretgen":
		return StrategyIterRetGen, nil
	}
	for _, id := range Strategies() {
		if string(id) == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
}

type SearchResult struct {
	Content  string  `json:"content"`
	SourceID string  `json:"source_id"`
	Page     *int    `json:"page,omitempty"`
	Distance float64 `json:"distance"`
}

// StrategyOutcome is the evaluation of one candidate strategy in best mode.
type StrategyOutcome struct {
	Strategy        StrategyID
	Results         []SearchResult
	AverageDistance float64
}

func NewStrategyOutcome(strategy StrategyID, results []SearchResult) StrategyOutcome {
	return StrategyOutcome{
		Strategy:        strategy,
		Results:         results,
		AverageDistance: AverageDistance(results),
	}
}

// AverageDistance is the arithmetic mean of distances, or +Inf for no results.
func AverageDistance(results []SearchResult) float64 {
	if len(results) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, r := range results {
		sum += r.Distance
	}
	return sum / float64(len(results))
}

// Comparison holds every best-mode candidate and the chosen winner. Winner is
// empty when no candidate returned results.
type Comparison struct {
	Winner   StrategyID        `json:"winner,omitempty"`
	Outcomes []StrategyOutcome `json:"outcomes"`
}

// Results returns the winner's results, or an empty list when there is none.
func (c Comparison) Results() []SearchResult {
	for _, o := range c.Outcomes {
		if o.Strategy == c.Winner && c.Winner != "" {
			return o.Results
		}
	}
	return []SearchResult{}
}

type Answer struct {
	Text     string         `json:"text"`
	Strategy StrategyID     `json:"strategy"`
	Sources  []SearchResult `json:"sources"`
}

// MarshalJSON encodes an infinite average distance as null.
func (o StrategyOutcome) MarshalJSON() ([]byte, error) {
	var avg *float64
	if !math.IsInf(o.AverageDistance, 0) && !math.IsNaN(o.AverageDistance) {
		v := o.AverageDistance
		avg = &v
	}
	return json.Marshal(strategyOutcomeJSON{
		Strategy:        o.Strategy,
		Results:         o.Results,
		AverageDistance: avg,
	})
}

func (o *StrategyOutcome) UnmarshalJSON(data []byte) error {
	var raw strategyOutcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Strategy = raw.Strategy
	o.Results = raw.Results
	o.AverageDistance = math.Inf(1)
	if raw.AverageDistance != nil {
		o.AverageDistance = *raw.AverageDistance
	}
	return nil
}

type strategyOutcomeJSON struct {
	Strategy        StrategyID     `json:"strategy"`
	Results         []SearchResult `json:"results"`
	AverageDistance *float64       `json:"average_distance"`
}

// RetrievalLimits bounds the cost of a single search.
type RetrievalLimits struct {
	DefaultTopK      int
	MaxDraftRunes    int
	DisableExpansion bool
	ParallelBest     bool
}
