package metrics

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

func TestSearchMetricsObserveSearch(t *testing.T) {
	m := NewSearchMetrics("api", prometheus.NewRegistry())

	m.ObserveSearch(domain.StrategyHyDE, time.Second, 3, nil)
	m.ObserveSearch(domain.StrategyHyDE, time.Second, 0, domain.WrapError(domain.ErrGeneration, "hyde", errors.New("quota")))

	if got := testutil.ToFloat64(m.searchTotal.WithLabelValues("api", "hyde", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.searchTotal.WithLabelValues("api", "hyde", "generation")); got != 1 {
		t.Fatalf("expected 1 generation failure, got %v", got)
	}
}

func TestSearchMetricsObserveOutcome(t *testing.T) {
	m := NewSearchMetrics("api", prometheus.NewRegistry())

	m.ObserveOutcome(domain.StrategyOutcome{Strategy: domain.StrategyQuery2Doc, AverageDistance: math.Inf(1)})
	m.ObserveOutcome(domain.StrategyOutcome{Strategy: domain.StrategyHyDE, AverageDistance: 0.2})

	if got := testutil.ToFloat64(m.emptyCandidates.WithLabelValues("api", "query2doc")); got != 1 {
		t.Fatalf("expected empty candidate counted, got %v", got)
	}
	if got := testutil.CollectAndCount(m.candidateDistance); got != 1 {
		t.Fatalf("expected one distance series, got %d", got)
	}
}

func TestSearchMetricsObserveBestWinner(t *testing.T) {
	m := NewSearchMetrics("api", prometheus.NewRegistry())

	m.ObserveBestWinner(domain.StrategyHyDE)
	m.ObserveBestWinner("")

	if got := testutil.ToFloat64(m.bestWinnerTotal.WithLabelValues("api", "none")); got != 1 {
		t.Fatalf("expected no-winner counted, got %v", got)
	}
}

func TestHTTPServerMetricsMiddlewareAndHandler(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/search", nil))
	m.Search().ObserveBestWinner(domain.StrategyPassthrough)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `retrieval_http_requests_total{method="GET",path="/v1/search",service="api",status="418"} 1`) {
		t.Fatalf("expected request counter in output:\n%s", body)
	}
	if !strings.Contains(body, "retrieval_best_winner_total") {
		t.Fatalf("expected search metrics in shared registry")
	}
}

func TestWorkerMetricsFinishRequest(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartRequest()
	m.FinishRequest("worker", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("worker", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestInFlight); got != 0 {
		t.Fatalf("expected no in-flight requests, got %v", got)
	}
}
