// Package anthropic adapts the Anthropic Messages API to the generation port.
// Anthropic has no embedding endpoint, so it only serves text generation.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 2048
)

type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// messagesAPI is the subset of the SDK message service used here.
type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type Generator struct {
	cfg      Config
	messages messagesAPI
	executor *resilience.Executor
}

func NewGenerator(cfg Config, executor *resilience.Executor) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "anthropic client", fmt.Errorf("ANTHROPIC_API_KEY is required"))
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return newWithMessages(cfg, &client.Messages, executor), nil
}

func newWithMessages(cfg Config, messages messagesAPI, executor *resilience.Executor) *Generator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Generator{cfg: cfg, messages: messages, executor: executor}
}

func (g *Generator) Generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt, err := llm.RenderPrompt(template, vars)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: int64(g.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(g.cfg.Temperature)
	}

	resp, err := resilience.Call(ctx, g.executor, "anthropic.messages", func(ctx context.Context) (*anthropic.Message, error) {
		msg, err := g.messages.New(ctx, params)
		return msg, asStatusError(err)
	}, llm.Classify)
	if err != nil {
		return "", llm.WrapFailure(domain.ErrGeneration, "anthropic messages", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrGeneration, "anthropic messages", fmt.Errorf("no text in response"))
	}
	return text, nil
}

// asStatusError exposes the SDK's HTTP status to the shared classifier.
func asStatusError(err error) error {
	var apiErr *anthropic.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	statusErr := &llm.HTTPStatusError{
		Provider:   "anthropic",
		Operation:  "messages",
		StatusCode: apiErr.StatusCode,
		Status:     http.StatusText(apiErr.StatusCode),
	}
	return fmt.Errorf("%w: %w", statusErr, err)
}
