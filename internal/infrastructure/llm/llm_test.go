package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt("Q: {query}\nD: {draft} {query}", map[string]string{
		"query": "why {draft}?",
		"draft": "text",
	})
	require.NoError(t, err)
	assert.Equal(t, "Q: why {draft}?\nD: text why {draft}?", out)
}

func TestRenderPromptKeepsNonPlaceholderBraces(t *testing.T) {
	out, err := RenderPrompt(`return {"a": 1} for {query}`, map[string]string{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, `return {"a": 1} for q`, out)
}

func TestRenderPromptMissingVariable(t *testing.T) {
	_, err := RenderPrompt("{query} {context}", map[string]string{"query": "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "context")
}

func TestPostJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]any{}, &out, "openai", "chat")
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "slow down")
	assert.True(t, Classify(err).Retryable)
}

func TestWrapFailure(t *testing.T) {
	temp := WrapFailure(domain.ErrGeneration, "generate", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable})
	assert.ErrorIs(t, temp, domain.ErrGeneration)
	assert.ErrorIs(t, temp, domain.ErrTemporary)

	permanent := WrapFailure(domain.ErrGeneration, "generate", &HTTPStatusError{StatusCode: http.StatusBadRequest})
	assert.ErrorIs(t, permanent, domain.ErrGeneration)
	assert.False(t, errors.Is(permanent, domain.ErrTemporary))

	assert.NoError(t, WrapFailure(domain.ErrGeneration, "generate", nil))
}

func TestClassifyCanceled(t *testing.T) {
	class := Classify(context.Canceled)
	assert.False(t, class.Retryable)
	assert.False(t, class.RecordFailure)
}
