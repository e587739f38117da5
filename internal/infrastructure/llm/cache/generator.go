// Package cache memoises text generation in Redis. Reformulation prompts are
// deterministic for a given query, so repeated questions skip the model call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

const keyPrefix = "retrieval:gen:"

type Generator struct {
	next   ports.TextGenerator
	client *redis.Client
	ttl    time.Duration
	model  string
	logger *zap.Logger
}

// NewGenerator wraps next. model namespaces keys so switching providers does
// not serve stale completions.
func NewGenerator(next ports.TextGenerator, client *redis.Client, model string, ttl time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Generator{next: next, client: client, ttl: ttl, model: model, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	key := g.key(template, vars)

	cached, err := g.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		g.logger.Warn("generation_cache_read_failed", zap.Error(err))
	}

	out, err := g.next.Generate(ctx, template, vars)
	if err != nil {
		return "", err
	}
	if err := g.client.Set(ctx, key, out, g.ttl).Err(); err != nil {
		g.logger.Warn("generation_cache_write_failed", zap.Error(err))
	}
	return out, nil
}

func (g *Generator) key(template string, vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(g.model))
	h.Write([]byte{0})
	h.Write([]byte(template))
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(vars[name]))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// NewClient builds a Redis client from a redis:// URL.
func NewClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
