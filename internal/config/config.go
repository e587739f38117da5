// Package config loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	BackendPGVector = "pgvector"
	BackendQdrant   = "qdrant"
)

type Config struct {
	// Service
	APIPort            string   `env:"API_PORT" envDefault:"8080"`
	WorkerMetricsPort  string   `env:"WORKER_METRICS_PORT" envDefault:"9090"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	Verbose            bool     `env:"VERBOSE" envDefault:"false"`
	RateLimitRPS       float64  `env:"API_RATE_LIMIT_RPS" envDefault:"5" validate:"gte=0"`
	RateLimitBurst     int      `env:"API_RATE_LIMIT_BURST" envDefault:"10" validate:"gte=0"`
	CORSAllowedOrigins []string `env:"API_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Providers
	Provider          string `env:"PROVIDER" envDefault:"google" validate:"oneof=google openai anthropic ollama"`
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" validate:"omitempty,oneof=google openai ollama"`

	GoogleAPIKey      string  `env:"GOOGLE_API_KEY"`
	GoogleChatModel   string  `env:"GOOGLE_CHAT_MODEL" envDefault:"gemini-2.0-flash"`
	GoogleEmbedModel  string  `env:"GOOGLE_EMBED_MODEL" envDefault:"gemini-embedding-001"`
	GoogleEmbedDim    int     `env:"GOOGLE_EMBED_DIMENSION" envDefault:"768" validate:"gte=0"`
	GoogleTemperature float32 `env:"GOOGLE_TEMPERATURE" envDefault:"0"`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1" validate:"url"`
	OpenAIChatModel   string        `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIEmbedModel  string        `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	OpenAITemperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0"`
	OpenAITimeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`

	AnthropicAPIKey    string  `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string  `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	AnthropicMaxTokens int     `env:"ANTHROPIC_MAX_TOKENS" envDefault:"2048" validate:"gt=0"`
	AnthropicTemp      float64 `env:"ANTHROPIC_TEMPERATURE" envDefault:"0"`

	OllamaURL        string `env:"OLLAMA_URL" envDefault:"http://localhost:11434" validate:"url"`
	OllamaGenModel   string `env:"OLLAMA_GEN_MODEL" envDefault:"llama3.1:8b"`
	OllamaEmbedModel string `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`

	// Vector store
	VectorBackend    string `env:"VECTOR_BACKEND" envDefault:"pgvector" validate:"oneof=pgvector qdrant"`
	Collection       string `env:"COLLECTION" envDefault:"documentos_pdf" validate:"required"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresHost     string `env:"POSTGRES_HOST"`
	PostgresPort     string `env:"POSTGRES_PORT"`
	PostgresDB       string `env:"POSTGRES_DB"`
	QdrantGRPCURL    string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`

	// Retrieval
	Strategy          string `env:"STRATEGY" envDefault:"passthrough"`
	TopK              int    `env:"TOP_K" envDefault:"10" validate:"gt=0"`
	IterMaxDraftRunes int    `env:"ITER_MAX_DRAFT_RUNES" envDefault:"6000" validate:"gt=0"`
	IterExpansion     bool   `env:"ITER_EXPANSION_ENABLED" envDefault:"true"`
	BestParallel      bool   `env:"BEST_PARALLEL" envDefault:"false"`

	// Generation cache
	RedisURL           string        `env:"REDIS_URL"`
	GenerationCacheTTL time.Duration `env:"GENERATION_CACHE_TTL" envDefault:"24h"`

	// Messaging
	NATSURL     string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject string        `env:"NATS_SUBJECT" envDefault:"retrieval.search"`
	NATSTimeout time.Duration `env:"NATS_REQUEST_TIMEOUT" envDefault:"120s"`

	// Resilience
	RetryMaxAttempts        int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialBackoff     time.Duration `env:"RETRY_INITIAL_BACKOFF" envDefault:"100ms"`
	RetryMaxBackoff         time.Duration `env:"RETRY_MAX_BACKOFF" envDefault:"400ms"`
	RetryMultiplier         float64       `env:"RETRY_MULTIPLIER" envDefault:"2"`
	BreakerEnabled          bool          `env:"BREAKER_ENABLED" envDefault:"true"`
	BreakerMinRequests      uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"10"`
	BreakerFailureRatio     float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerOpenTimeout      time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	BreakerHalfOpenMaxCalls uint32        `env:"BREAKER_HALF_OPEN_MAX_CALLS" envDefault:"2"`
}

var validate = validator.New()

// Load reads .env (if present) and the environment, then validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, domain.WrapError(domain.ErrConfiguration, "parse env", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))
	if cfg.EmbeddingProvider == "" && cfg.Provider != ProviderAnthropic {
		cfg.EmbeddingProvider = cfg.Provider
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, domain.WrapError(domain.ErrConfiguration, "validate config", err)
	}
	if cfg.Provider == ProviderAnthropic && cfg.EmbeddingProvider == "" {
		return Config{}, domain.WrapError(domain.ErrConfiguration, "validate config",
			errors.New("anthropic has no embedding API; set EMBEDDING_PROVIDER to google, openai or ollama"))
	}
	if _, err := domain.ParseStrategy(cfg.Strategy); err != nil {
		return Config{}, domain.WrapError(domain.ErrConfiguration, "validate config", err)
	}
	return cfg, nil
}

// WithProvider returns a copy with the generation provider overridden, used
// by command-line flags. The embedding provider follows unless it was set
// explicitly to something else.
func (c Config) WithProvider(provider string) (Config, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || provider == c.Provider {
		return c, nil
	}
	out := c
	if c.EmbeddingProvider == c.Provider && provider != ProviderAnthropic {
		out.EmbeddingProvider = provider
	}
	out.Provider = provider
	if err := validate.Struct(out); err != nil {
		return Config{}, domain.WrapError(domain.ErrConfiguration, "provider flag", err)
	}
	return out, nil
}

// CheckCredentials reports missing database variables and provider keys
// before any backend is constructed.
func (c Config) CheckCredentials() error {
	if c.VectorBackend == BackendPGVector && c.PostgresDSN == "" {
		var missing []string
		for _, v := range []struct{ name, value string }{
			{"POSTGRES_USER", c.PostgresUser},
			{"POSTGRES_PASSWORD", c.PostgresPassword},
			{"POSTGRES_HOST", c.PostgresHost},
			{"POSTGRES_PORT", c.PostgresPort},
			{"POSTGRES_DB", c.PostgresDB},
		} {
			if strings.TrimSpace(v.value) == "" {
				missing = append(missing, v.name)
			}
		}
		if len(missing) > 0 {
			return domain.WrapError(domain.ErrConfiguration, "check credentials",
				fmt.Errorf("missing database variables: %s", strings.Join(missing, ", ")))
		}
	}

	return c.checkProviders(c.Provider, c.EmbeddingProvider)
}

// CheckGenerationCredentials covers processes that generate text locally but
// delegate retrieval to a remote worker.
func (c Config) CheckGenerationCredentials() error {
	return c.checkProviders(c.Provider)
}

func (c Config) checkProviders(providers ...string) error {
	for _, provider := range uniqueProviders(providers...) {
		if key := c.missingKey(provider); key != "" {
			return domain.WrapError(domain.ErrConfiguration, "check credentials",
				fmt.Errorf("provider %q requires %s", provider, key))
		}
	}
	return nil
}

func (c Config) missingKey(provider string) string {
	switch provider {
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return "GOOGLE_API_KEY"
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return "OPENAI_API_KEY"
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return "ANTHROPIC_API_KEY"
		}
	}
	return ""
}

func uniqueProviders(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// DatabaseDSN returns POSTGRES_DSN or builds one from the individual parts.
func (c Config) DatabaseDSN() string {
	if c.PostgresDSN != "" {
		return c.PostgresDSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDB,
	}
	return u.String()
}

func (c Config) Limits() domain.RetrievalLimits {
	return domain.RetrievalLimits{
		DefaultTopK:      c.TopK,
		MaxDraftRunes:    c.IterMaxDraftRunes,
		DisableExpansion: !c.IterExpansion,
		ParallelBest:     c.BestParallel,
	}
}

func (c Config) Resilience() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        c.RetryMaxAttempts,
		RetryInitialBackoff:     c.RetryInitialBackoff,
		RetryMaxBackoff:         c.RetryMaxBackoff,
		RetryMultiplier:         c.RetryMultiplier,
		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      c.BreakerMinRequests,
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      c.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: c.BreakerHalfOpenMaxCalls,
	}
}
