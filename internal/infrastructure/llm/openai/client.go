// Package openai talks to the OpenAI REST API (or any compatible endpoint)
// for chat completions and embeddings.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

const (
	provider          = "openai"
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
)

type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai client", fmt.Errorf("OPENAI_API_KEY is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
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

	req := chatRequest{
		Model:       g.client.cfg.ChatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: g.client.cfg.Temperature,
	}
	var resp chatResponse
	if err := g.client.postJSON(ctx, "/chat/completions", req, &resp, "chat"); err != nil {
		return "", llm.WrapFailure(domain.ErrGeneration, "openai chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrGeneration, "openai chat", fmt.Errorf("response has no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{
		Input:          []string{text},
		Model:          e.client.cfg.EmbedModel,
		EncodingFormat: "float",
	}
	var resp embeddingResponse
	if err := e.client.postJSON(ctx, "/embeddings", req, &resp, "embed"); err != nil {
		return nil, llm.WrapFailure(domain.ErrRetrieval, "openai embed", err)
	}
	for _, d := range resp.Data {
		if d.Index == 0 {
			return d.Embedding, nil
		}
	}
	return nil, domain.WrapError(domain.ErrRetrieval, "openai embed", fmt.Errorf("no embedding returned for query"))
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	_, err := resilience.Call(ctx, c.executor, "openai."+operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, llm.PostJSON(ctx, c.httpClient, c.cfg.BaseURL+path, headers, payload, out, provider, operation)
	}, llm.Classify)
	return err
}
