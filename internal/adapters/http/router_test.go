package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

type searcherFake struct {
	query    string
	k        int
	strategy domain.StrategyID
	verbose  bool
	err      error
}

func (f *searcherFake) Search(ctx context.Context, query string, k int, strategy domain.StrategyID) ([]domain.SearchResult, error) {
	f.query, f.k, f.strategy = query, k, strategy
	f.verbose = diagnostics.Verbose(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{{Content: "30 days", SourceID: "policy.pdf", Distance: 0.2}}, nil
}

func (f *searcherFake) Reformulate(_ context.Context, query string, strategy domain.StrategyID) (string, error) {
	f.query, f.strategy = query, strategy
	if f.err != nil {
		return "", f.err
	}
	return query + "\n\npassage", nil
}

func (f *searcherFake) Compare(_ context.Context, _ string, _ int) (domain.Comparison, error) {
	if f.err != nil {
		return domain.Comparison{}, f.err
	}
	return domain.Comparison{Outcomes: []domain.StrategyOutcome{
		domain.NewStrategyOutcome(domain.StrategyPassthrough, nil),
	}}, nil
}

type answererFake struct{}

func (answererFake) Answer(_ context.Context, question string, _ int, strategy domain.StrategyID) (*domain.Answer, error) {
	return &domain.Answer{Text: "answer to " + question, Strategy: strategy}, nil
}

func newTestHandler(searcher *searcherFake, opts Options) http.Handler {
	return NewRouter(searcher, searcher, answererFake{}, nil, nil, opts).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestSearchUsesDefaultStrategy(t *testing.T) {
	fake := &searcherFake{}
	handler := newTestHandler(fake, Options{DefaultStrategy: domain.StrategyHyDE})

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "vacation days", "k": 3})
	require.Equal(t, http.StatusOK, res.Code)

	var body searchResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, domain.StrategyHyDE, body.Strategy)
	require.Len(t, body.Results, 1)
	assert.Equal(t, 3, fake.k)
	assert.Equal(t, domain.StrategyHyDE, fake.strategy)
	assert.NotEmpty(t, res.Header().Get(requestIDHeader))
}

func TestSearchParsesStrategyAliasAndVerbose(t *testing.T) {
	fake := &searcherFake{}
	handler := newTestHandler(fake, Options{})

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "q", "strategy": "iter_retgen", "verbose": true})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, domain.StrategyIterRetGen, fake.strategy)
	assert.True(t, fake.verbose)
}

func TestSearchRejectsUnknownStrategy(t *testing.T) {
	fake := &searcherFake{}
	handler := newTestHandler(fake, Options{})

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "q", "strategy": "rerank"})
	require.Equal(t, http.StatusBadRequest, res.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "unknown_strategy", body.Kind)
	assert.Empty(t, fake.query)
}

func TestSearchValidatesBody(t *testing.T) {
	handler := newTestHandler(&searcherFake{}, Options{})

	assert.Equal(t, http.StatusBadRequest, postJSON(t, handler, "/v1/search", map[string]any{"k": 3}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, handler, "/v1/search", map[string]any{"query": "q", "k": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, handler, "/v1/search", map[string]any{"query": "q", "extra": 1}).Code)
}

func TestSearchMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"generation", domain.WrapError(domain.ErrGeneration, "hyde", errors.New("quota")), http.StatusBadGateway},
		{"retrieval", domain.WrapError(domain.ErrRetrieval, "search", errors.New("down")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrGeneration, "hyde", domain.WrapError(domain.ErrTemporary, "call", errors.New("503"))), http.StatusServiceUnavailable},
		{"configuration", domain.WrapError(domain.ErrConfiguration, "provider", errors.New("no key")), http.StatusInternalServerError},
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "search", errors.New("blank")), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(&searcherFake{err: tc.err}, Options{})
			res := postJSON(t, handler, "/v1/search", map[string]any{"query": "q"})
			assert.Equal(t, tc.want, res.Code)
		})
	}
}

func TestReformulateAndCompare(t *testing.T) {
	fake := &searcherFake{}
	handler := newTestHandler(fake, Options{})

	res := postJSON(t, handler, "/v1/reformulate", map[string]any{"query": "q", "strategy": "query2doc"})
	require.Equal(t, http.StatusOK, res.Code)
	var reformulated reformulateResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&reformulated))
	assert.Equal(t, "q\n\npassage", reformulated.Text)

	res = postJSON(t, handler, "/v1/search/compare", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, res.Code)
	var raw map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&raw))
	assert.NotContains(t, raw, "winner")
	assert.Equal(t, []any{}, raw["results"])
}

func TestAnswerEndpoint(t *testing.T) {
	handler := newTestHandler(&searcherFake{}, Options{})

	res := postJSON(t, handler, "/v1/answer", map[string]any{"query": "how many days?", "strategy": "best"})
	require.Equal(t, http.StatusOK, res.Code)
	var answer domain.Answer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&answer))
	assert.Equal(t, "answer to how many days?", answer.Text)
	assert.Equal(t, domain.StrategyBest, answer.Strategy)
}

func TestHealthzAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("retrieval_up 1\n"))
	})
	handler := NewRouter(&searcherFake{}, &searcherFake{}, nil, metrics, nil, Options{}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "retrieval_up 1\n", res.Body.String())

	assert.Equal(t, http.StatusNotFound, postJSON(t, handler, "/v1/answer", map[string]any{"query": "q"}).Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := newTestHandler(&searcherFake{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, "req-42", res.Header().Get(requestIDHeader))
}
