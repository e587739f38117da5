package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

// SearchHandler decodes a request, runs it against the searcher and encodes
// the reply. Failures are reported inside the reply, never dropped.
type SearchHandler struct {
	searcher ports.DocumentSearcher
	comparer ports.StrategyComparer
}

func NewSearchHandler(searcher ports.DocumentSearcher, comparer ports.StrategyComparer) *SearchHandler {
	return &SearchHandler{searcher: searcher, comparer: comparer}
}

func (h *SearchHandler) Handle(ctx context.Context, data []byte) ([]byte, error) {
	var req SearchRequest
	resp := SearchResponse{}
	if err := json.Unmarshal(data, &req); err != nil {
		resp.setError(domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return json.Marshal(resp)
	}
	resp.ID = req.ID

	ctx = diagnostics.WithVerbose(ctx, req.Verbose)
	if err := h.dispatch(ctx, req, &resp); err != nil {
		resp.setError(err)
	}
	return json.Marshal(resp)
}

func (h *SearchHandler) dispatch(ctx context.Context, req SearchRequest, resp *SearchResponse) error {
	switch strings.ToLower(strings.TrimSpace(req.Operation)) {
	case "", OpSearch:
		results, err := h.searcher.Search(ctx, req.Query, req.K, req.Strategy)
		if err != nil {
			return err
		}
		resp.Results = results
	case OpReformulate:
		text, err := h.searcher.Reformulate(ctx, req.Query, req.Strategy)
		if err != nil {
			return err
		}
		resp.Text = text
	case OpCompare:
		if h.comparer == nil {
			return domain.WrapError(domain.ErrInvalidInput, "dispatch", fmt.Errorf("compare is not served"))
		}
		cmp, err := h.comparer.Compare(ctx, req.Query, req.K)
		if err != nil {
			return err
		}
		resp.Comparison = &cmp
		resp.Results = cmp.Results()
	default:
		return domain.WrapError(domain.ErrInvalidInput, "dispatch", fmt.Errorf("unknown operation %q", req.Operation))
	}
	return nil
}

func (r *SearchResponse) setError(err error) {
	r.ErrorKind = domain.KindOf(err)
	r.Error = err.Error()
}
