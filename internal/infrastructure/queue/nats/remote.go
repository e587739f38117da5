package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

type requester interface {
	Request(ctx context.Context, data []byte) ([]byte, error)
}

// RemoteSearcher forwards searches to a worker over NATS request/reply.
type RemoteSearcher struct {
	requester requester
}

func NewRemoteSearcher(requester requester) *RemoteSearcher {
	return &RemoteSearcher{requester: requester}
}

func (s *RemoteSearcher) Search(ctx context.Context, query string, k int, strategy domain.StrategyID) ([]domain.SearchResult, error) {
	resp, err := s.call(ctx, SearchRequest{Operation: OpSearch, Query: query, K: k, Strategy: strategy})
	if err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []domain.SearchResult{}, nil
	}
	return resp.Results, nil
}

func (s *RemoteSearcher) Reformulate(ctx context.Context, query string, strategy domain.StrategyID) (string, error) {
	resp, err := s.call(ctx, SearchRequest{Operation: OpReformulate, Query: query, Strategy: strategy})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *RemoteSearcher) Compare(ctx context.Context, query string, k int) (domain.Comparison, error) {
	resp, err := s.call(ctx, SearchRequest{Operation: OpCompare, Query: query, K: k})
	if err != nil {
		return domain.Comparison{}, err
	}
	if resp.Comparison == nil {
		return domain.Comparison{}, nil
	}
	return *resp.Comparison, nil
}

func (s *RemoteSearcher) call(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	req.ID = uuid.NewString()
	req.Verbose = diagnostics.Verbose(ctx)

	data, err := json.Marshal(req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("encode %s request: %w", req.Operation, err)
	}
	raw, err := s.requester.Request(ctx, data)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("remote %s: %w", req.Operation, err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return SearchResponse{}, domain.WrapError(domain.ErrConnection, "decode reply", err)
	}
	if err := resp.err(); err != nil {
		return SearchResponse{}, fmt.Errorf("remote %s: %w", req.Operation, err)
	}
	return resp, nil
}
