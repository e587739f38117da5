package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, defaultChatModel, c.cfg.ChatModel)
	assert.Equal(t, defaultEmbedModel, c.cfg.EmbedModel)
}

func TestGeneratorChatCompletion(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" hypothetical answer "}}]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "secret", BaseURL: srv.URL + "/", ChatModel: "gpt-test"}, nil)
	require.NoError(t, err)

	out, err := NewGenerator(client).Generate(context.Background(), "Q: {query}", map[string]string{"query": "vacation"})
	require.NoError(t, err)
	assert.Equal(t, "hypothetical answer", out)
	assert.Equal(t, "gpt-test", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "Q: vacation", captured.Messages[0].Content)
}

func TestGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = NewGenerator(client).Generate(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGeneratorUnauthorizedIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = NewGenerator(client).Generate(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.NotErrorIs(t, err, domain.ErrTemporary)
	assert.Contains(t, err.Error(), "bad key")
}

func TestEmbedderEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.25]}]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	vec, err := NewEmbedder(client).EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}
