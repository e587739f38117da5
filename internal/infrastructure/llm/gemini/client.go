// Package gemini adapts the Google Gen AI SDK to the generation and
// embedding ports.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

const (
	defaultChatModel  = "gemini-2.0-flash"
	defaultEmbedModel = "gemini-embedding-001"
)

type Config struct {
	APIKey         string
	ChatModel      string
	EmbedModel     string
	Temperature    float32
	EmbedDimension int
}

// modelsAPI is the subset of *genai.Models used here.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Client struct {
	cfg      Config
	models   modelsAPI
	executor *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini client", fmt.Errorf("GOOGLE_API_KEY is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini client", err)
	}
	return newWithModels(cfg, client.Models, executor), nil
}

func newWithModels(cfg Config, models modelsAPI, executor *resilience.Executor) *Client {
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	return &Client{cfg: cfg, models: models, executor: executor}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt, err := llm.RenderPrompt(template, vars)
	if err != nil {
		return "", err
	}

	c := g.client
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}
	resp, err := resilience.Call(ctx, c.executor, "gemini.generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.cfg.ChatModel, []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		}, config)
	}, llm.Classify)
	if err != nil {
		return "", llm.WrapFailure(domain.ErrGeneration, "gemini generate", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", domain.WrapError(domain.ErrGeneration, "gemini generate", fmt.Errorf("no text in response"))
	}
	return text, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c := e.client
	config := &genai.EmbedContentConfig{}
	if c.cfg.EmbedDimension > 0 {
		dim := int32(c.cfg.EmbedDimension)
		config.OutputDimensionality = &dim
	}
	result, err := resilience.Call(ctx, c.executor, "gemini.embed", func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return c.models.EmbedContent(ctx, c.cfg.EmbedModel, []*genai.Content{
			genai.NewContentFromText(text, genai.RoleUser),
		}, config)
	}, llm.Classify)
	if err != nil {
		return nil, llm.WrapFailure(domain.ErrRetrieval, "gemini embed", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, domain.WrapError(domain.ErrRetrieval, "gemini embed", fmt.Errorf("no embedding returned"))
	}
	return result.Embeddings[0].Values, nil
}

// responseText returns the text of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return strings.TrimSpace(b.String())
		}
	}
	return ""
}
