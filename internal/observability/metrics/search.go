package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

// SearchMetrics records per-strategy search activity. It satisfies
// ports.SearchObserver.
type SearchMetrics struct {
	service string

	searchTotal       *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	retrievedResults  *prometheus.HistogramVec
	candidateDistance *prometheus.HistogramVec
	emptyCandidates   *prometheus.CounterVec
	bestWinnerTotal   *prometheus.CounterVec
}

func NewSearchMetrics(service string, registerer prometheus.Registerer) *SearchMetrics {
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total searches by strategy and status.",
		},
		[]string{"service", "strategy", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search duration in seconds, reformulation included.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service", "strategy"},
	)
	retrievedResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of returned results per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "strategy"},
	)
	candidateDistance := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "best",
			Name:      "candidate_average_distance",
			Help:      "Average result distance of each best-mode candidate.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1, 1.5, 2},
		},
		[]string{"service", "strategy"},
	)
	emptyCandidates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "best",
			Name:      "empty_candidates_total",
			Help:      "Best-mode candidates that retrieved nothing.",
		},
		[]string{"service", "strategy"},
	)
	bestWinnerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "best",
			Name:      "winner_total",
			Help:      "Best-mode selections by winning strategy.",
		},
		[]string{"service", "winner"},
	)

	registerer.MustRegister(
		searchTotal,
		searchDuration,
		retrievedResults,
		candidateDistance,
		emptyCandidates,
		bestWinnerTotal,
	)

	return &SearchMetrics{
		service:           service,
		searchTotal:       searchTotal,
		searchDuration:    searchDuration,
		retrievedResults:  retrievedResults,
		candidateDistance: candidateDistance,
		emptyCandidates:   emptyCandidates,
		bestWinnerTotal:   bestWinnerTotal,
	}
}

func (m *SearchMetrics) ObserveSearch(strategy domain.StrategyID, duration time.Duration, results int, err error) {
	label := strategyLabel(strategy)
	status := "success"
	if err != nil {
		status = domain.KindOf(err)
	}
	m.searchTotal.WithLabelValues(m.service, label, status).Inc()
	m.searchDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
	if err == nil {
		m.retrievedResults.WithLabelValues(m.service, label).Observe(float64(results))
	}
}

func (m *SearchMetrics) ObserveOutcome(outcome domain.StrategyOutcome) {
	label := strategyLabel(outcome.Strategy)
	if math.IsInf(outcome.AverageDistance, 1) {
		m.emptyCandidates.WithLabelValues(m.service, label).Inc()
		return
	}
	m.candidateDistance.WithLabelValues(m.service, label).Observe(outcome.AverageDistance)
}

func (m *SearchMetrics) ObserveBestWinner(winner domain.StrategyID) {
	label := string(winner)
	if label == "" {
		label = "none"
	}
	m.bestWinnerTotal.WithLabelValues(m.service, label).Inc()
}

func strategyLabel(strategy domain.StrategyID) string {
	if strategy == "" {
		return "unknown"
	}
	return string(strategy)
}
