// Package llm holds the pieces shared by the text generation and embedding
// adapters: prompt rendering, the JSON transport and error classification.
package llm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderPrompt substitutes {name} placeholders in a single pass, so values
// that contain braces are never expanded again.
func RenderPrompt(template string, vars map[string]string) (string, error) {
	missing := make(map[string]struct{})
	out := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			missing[name] = struct{}{}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", domain.WrapError(domain.ErrInvalidInput, "render prompt",
			fmt.Errorf("missing template variables: %s", strings.Join(names, ", ")))
	}
	return out, nil
}
