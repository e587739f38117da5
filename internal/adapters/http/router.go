package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

const maxRequestBody = 1 << 20

type Options struct {
	DefaultStrategy domain.StrategyID
	Verbose         bool
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	QueueWait       time.Duration
	CORSOrigins     []string
}

type Router struct {
	searcher ports.DocumentSearcher
	comparer ports.StrategyComparer
	answerer ports.QuestionAnswerer
	metrics  http.Handler
	logger   *zap.Logger
	opts     Options
	validate *validator.Validate
}

func NewRouter(
	searcher ports.DocumentSearcher,
	comparer ports.StrategyComparer,
	answerer ports.QuestionAnswerer,
	metrics http.Handler,
	logger *zap.Logger,
	opts Options,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = domain.StrategyPassthrough
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 2 * time.Second
	}
	return &Router{
		searcher: searcher,
		comparer: comparer,
		answerer: answerer,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		validate: validator.New(),
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if rt.opts.RateLimitRPS > 0 {
			burst := rt.opts.RateLimitBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(rt.opts.RateLimitRPS), burst)))
		}
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.opts.MaxInFlight, rt.opts.QueueWait)
		})

		r.Post("/search", rt.search)
		r.Post("/reformulate", rt.reformulate)
		r.Post("/search/compare", rt.compare)
		if rt.answerer != nil {
			r.Post("/answer", rt.answer)
		}
	})
	return r
}

func (rt *Router) corsOrigins() []string {
	if len(rt.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return rt.opts.CORSOrigins
}

type searchRequest struct {
	Query    string `json:"query" validate:"required"`
	K        int    `json:"k" validate:"gte=0,lte=100"`
	Strategy string `json:"strategy"`
	Verbose  bool   `json:"verbose"`
}

type searchResponse struct {
	Strategy domain.StrategyID     `json:"strategy"`
	Results  []domain.SearchResult `json:"results"`
}

type reformulateResponse struct {
	Strategy domain.StrategyID `json:"strategy"`
	Text     string            `json:"text"`
}

type compareResponse struct {
	domain.Comparison
	Results []domain.SearchResult `json:"results"`
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	req, strategy, ok := rt.decode(w, r)
	if !ok {
		return
	}
	results, err := rt.searcher.Search(rt.diagnosticsContext(r, req), req.Query, req.K, strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Strategy: strategy, Results: results})
}

func (rt *Router) reformulate(w http.ResponseWriter, r *http.Request) {
	req, strategy, ok := rt.decode(w, r)
	if !ok {
		return
	}
	text, err := rt.searcher.Reformulate(rt.diagnosticsContext(r, req), req.Query, strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reformulateResponse{Strategy: strategy, Text: text})
}

func (rt *Router) compare(w http.ResponseWriter, r *http.Request) {
	req, _, ok := rt.decode(w, r)
	if !ok {
		return
	}
	cmp, err := rt.comparer.Compare(rt.diagnosticsContext(r, req), req.Query, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Comparison: cmp, Results: cmp.Results()})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	req, strategy, ok := rt.decode(w, r)
	if !ok {
		return
	}
	answer, err := rt.answerer.Answer(rt.diagnosticsContext(r, req), req.Query, req.K, strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request) (searchRequest, domain.StrategyID, bool) {
	var req searchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json")))
		return req, "", false
	}
	if err := rt.validate.Struct(req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "validate request", err))
		return req, "", false
	}

	strategy := rt.opts.DefaultStrategy
	if strings.TrimSpace(req.Strategy) != "" {
		parsed, err := domain.ParseStrategy(req.Strategy)
		if err != nil {
			writeError(w, err)
			return req, "", false
		}
		strategy = parsed
	}
	return req, strategy, true
}

func (rt *Router) diagnosticsContext(r *http.Request, req searchRequest) context.Context {
	return diagnostics.WithVerbose(r.Context(), rt.opts.Verbose || req.Verbose)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
