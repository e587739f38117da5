// Package prompts holds the generation templates used by the reformulation
// strategies. Templates use {name} placeholders filled by the text generator.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

type Catalog struct {
	HyDE             string `yaml:"hyde"`
	Query2Doc        string `yaml:"query2doc"`
	DraftInit        string `yaml:"draft_init"`
	GapInfo          string `yaml:"gap_info"`
	GapInfoExpansion string `yaml:"gap_info_expansion"`
	Rewrite          string `yaml:"rewrite"`
	Expansion        string `yaml:"expansion"`
	Answer           string `yaml:"answer"`
}

// Default returns the embedded catalog.
func Default() Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog and checks every template is present.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) validate() error {
	required := map[string]string{
		"hyde":               c.HyDE,
		"query2doc":          c.Query2Doc,
		"draft_init":         c.DraftInit,
		"gap_info":           c.GapInfo,
		"gap_info_expansion": c.GapInfoExpansion,
		"rewrite":            c.Rewrite,
		"expansion":          c.Expansion,
		"answer":             c.Answer,
	}
	var missing []string
	for name, tmpl := range required {
		if strings.TrimSpace(tmpl) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt catalog is missing templates: %s", strings.Join(missing, ", "))
	}
	return nil
}
