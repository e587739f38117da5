package prompts

import (
	"strings"
	"testing"
)

func TestDefaultCatalogHasPlaceholders(t *testing.T) {
	c := Default()
	checks := map[string][]string{
		c.HyDE:             {"{query}"},
		c.Query2Doc:        {"{query}"},
		c.DraftInit:        {"{query}"},
		c.GapInfo:          {"{query}", "{draft}", "{gaps}"},
		c.GapInfoExpansion: {"{query}", "{draft}", "{gaps}"},
		c.Rewrite:          {"{query}", "{draft}", "{context}"},
		c.Expansion:        {"{query}", "{draft}"},
		c.Answer:           {"{context}", "{question}"},
	}
	for tmpl, placeholders := range checks {
		for _, p := range placeholders {
			if !strings.Contains(tmpl, p) {
				t.Fatalf("template missing %s:\n%s", p, tmpl)
			}
		}
	}
}

func TestDefaultCatalogNamesGapKinds(t *testing.T) {
	c := Default()
	checks := map[string][]string{
		c.DraftInit: {"version numbers", "specs", "benchmarks", "comparisons", "implementation details", "use cases", "limitations", "roadmap", "at most 5"},
		c.GapInfo:   {"concrete information", "at most 5"},
		c.Expansion: {"technical nuance", "examples", "comparative data", "implementation specifics", "unchanged"},
	}
	for tmpl, phrases := range checks {
		for _, p := range phrases {
			if !strings.Contains(tmpl, p) {
				t.Fatalf("template missing %q:\n%s", p, tmpl)
			}
		}
	}
	if strings.Contains(c.GapInfoExpansion, "at most 5") {
		t.Fatalf("expansion gap info must not be capped:\n%s", c.GapInfoExpansion)
	}
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	_, err := Parse([]byte("hyde: \"{query}\"\n"))
	if err == nil || !strings.Contains(err.Error(), "query2doc") {
		t.Fatalf("expected missing template error, got %v", err)
	}
}
