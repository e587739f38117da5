package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/llm"
	"github.com/kirillkom/adaptive-retrieval/internal/infrastructure/resilience"
)

const (
	defaultGRPCPort = 6334
	pingTimeout     = 10 * time.Second
)

// pointsAPI is the subset of the qdrant client used for retrieval.
type pointsAPI interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
}

// Index searches a qdrant collection populated with LangChain-style
// payloads ({"page_content": ..., "metadata": {...}}).
type Index struct {
	points     pointsAPI
	closer     func() error
	collection string
	executor   *resilience.Executor
}

// New connects over gRPC and checks the server is reachable. addr is "host"
// or "host:port".
func New(ctx context.Context, addr, apiKey, collection string, executor *resilience.Executor) (*Index, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		portStr = strconv.Itoa(defaultGRPCPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "qdrant address", fmt.Errorf("invalid port %q: %w", portStr, err))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrConnection, "qdrant connect", err)
	}

	index := newWithPoints(client, collection, executor)
	index.closer = client.Close
	if err := index.Ping(ctx); err != nil {
		_ = index.Close()
		return nil, err
	}
	return index, nil
}

func newWithPoints(points pointsAPI, collection string, executor *resilience.Executor) *Index {
	return &Index{points: points, collection: collection, executor: executor}
}

func (i *Index) Close() error {
	if i.closer == nil {
		return nil
	}
	return i.closer()
}

// Ping fails with ErrConnection when the server does not answer a health
// check. The gRPC client dials lazily, so this is the first real round trip.
func (i *Index) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := i.points.HealthCheck(pingCtx); err != nil {
		return domain.WrapError(domain.ErrConnection, "qdrant connect", err)
	}
	return nil
}

func (i *Index) CollectionExists(ctx context.Context) (bool, error) {
	ok, err := i.points.CollectionExists(ctx, i.collection)
	if err != nil {
		return false, domain.WrapError(domain.ErrConnection, "qdrant collection exists", err)
	}
	return ok, nil
}

// SearchByVector returns the k nearest points. Qdrant reports cosine
// similarity, so the distance is 1 - score.
func (i *Index) SearchByVector(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant search", errors.New("empty query vector"))
	}
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant search", fmt.Errorf("k must be positive, got %d", k))
	}

	points, err := resilience.Call(ctx, i.executor, "qdrant.query", func(ctx context.Context) ([]*qdrant.ScoredPoint, error) {
		return i.points.Query(ctx, &qdrant.QueryPoints{
			CollectionName: i.collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
	}, llm.Classify)
	if err != nil {
		return nil, llm.WrapFailure(domain.ErrRetrieval, "qdrant search", err)
	}

	results := make([]domain.SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, toSearchResult(point))
	}
	return results, nil
}

func toSearchResult(point *qdrant.ScoredPoint) domain.SearchResult {
	result := domain.SearchResult{Distance: 1 - float64(point.GetScore())}
	payload := point.GetPayload()
	if payload == nil {
		return result
	}

	if v, ok := payload["page_content"]; ok {
		result.Content = v.GetStringValue()
	} else if v, ok := payload["content"]; ok {
		result.Content = v.GetStringValue()
	}

	meta := payload
	if nested, ok := payload["metadata"]; ok && nested.GetStructValue() != nil {
		meta = nested.GetStructValue().GetFields()
	}
	if v, ok := meta["source"]; ok {
		result.SourceID = v.GetStringValue()
	}
	if v, ok := meta["page"]; ok {
		if page, ok := pageValue(v); ok {
			result.Page = &page
		}
	}
	return result
}

func pageValue(v *qdrant.Value) (int, bool) {
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return int(v.GetIntegerValue()), true
	case *qdrant.Value_DoubleValue:
		return int(v.GetDoubleValue()), true
	case *qdrant.Value_StringValue:
		page, err := strconv.Atoi(v.GetStringValue())
		return page, err == nil
	}
	return 0, false
}
