package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/adaptive-retrieval/internal/config"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm/anthropic"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm/openai"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

// providerSet lazily builds one client per provider so generator and
// embedder share connections when they use the same backend.
type providerSet struct {
	cfg      config.Config
	executor *resilience.Executor

	gemini *gemini.Client
	openai *openai.Client
	ollama *ollama.Client
}

func newProviderSet(cfg config.Config, executor *resilience.Executor) *providerSet {
	return &providerSet{cfg: cfg, executor: executor}
}

func (p *providerSet) generator(ctx context.Context) (ports.TextGenerator, string, error) {
	switch p.cfg.Provider {
	case config.ProviderGoogle:
		client, err := p.geminiClient(ctx)
		if err != nil {
			return nil, "", err
		}
		return gemini.NewGenerator(client), "google:" + p.cfg.GoogleChatModel, nil
	case config.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, "", err
		}
		return openai.NewGenerator(client), "openai:" + p.cfg.OpenAIChatModel, nil
	case config.ProviderAnthropic:
		gen, err := anthropic.NewGenerator(anthropic.Config{
			APIKey:      p.cfg.AnthropicAPIKey,
			Model:       p.cfg.AnthropicModel,
			MaxTokens:   p.cfg.AnthropicMaxTokens,
			Temperature: p.cfg.AnthropicTemp,
		}, p.executor)
		if err != nil {
			return nil, "", err
		}
		return gen, "anthropic:" + p.cfg.AnthropicModel, nil
	case config.ProviderOllama:
		return ollama.NewGenerator(p.ollamaClient()), "ollama:" + p.cfg.OllamaGenModel, nil
	default:
		return nil, "", domain.WrapError(domain.ErrConfiguration, "select generator", fmt.Errorf("unsupported provider %q", p.cfg.Provider))
	}
}

func (p *providerSet) embedder(ctx context.Context) (ports.Embedder, error) {
	switch p.cfg.EmbeddingProvider {
	case config.ProviderGoogle:
		client, err := p.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client), nil
	case config.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewEmbedder(client), nil
	case config.ProviderOllama:
		return ollama.NewEmbedder(p.ollamaClient()), nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "select embedder", fmt.Errorf("unsupported embedding provider %q", p.cfg.EmbeddingProvider))
	}
}

func (p *providerSet) geminiClient(ctx context.Context) (*gemini.Client, error) {
	if p.gemini != nil {
		return p.gemini, nil
	}
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:         p.cfg.GoogleAPIKey,
		ChatModel:      p.cfg.GoogleChatModel,
		EmbedModel:     p.cfg.GoogleEmbedModel,
		Temperature:    p.cfg.GoogleTemperature,
		EmbedDimension: p.cfg.GoogleEmbedDim,
	}, p.executor)
	if err != nil {
		return nil, err
	}
	p.gemini = client
	return client, nil
}

func (p *providerSet) openaiClient() (*openai.Client, error) {
	if p.openai != nil {
		return p.openai, nil
	}
	client, err := openai.New(openai.Config{
		APIKey:      p.cfg.OpenAIAPIKey,
		BaseURL:     p.cfg.OpenAIBaseURL,
		ChatModel:   p.cfg.OpenAIChatModel,
		EmbedModel:  p.cfg.OpenAIEmbedModel,
		Temperature: p.cfg.OpenAITemperature,
		Timeout:     p.cfg.OpenAITimeout,
	}, p.executor)
	if err != nil {
		return nil, err
	}
	p.openai = client
	return client, nil
}

func (p *providerSet) ollamaClient() *ollama.Client {
	if p.ollama == nil {
		p.ollama = ollama.New(p.cfg.OllamaURL, p.cfg.OllamaGenModel, p.cfg.OllamaEmbedModel, p.executor)
	}
	return p.ollama
}
