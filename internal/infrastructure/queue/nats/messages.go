package nats

import (
	"errors"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

const (
	OpSearch      = "search"
	OpReformulate = "reformulate"
	OpCompare     = "compare"
)

// SearchRequest is the request/reply payload served by the search worker.
type SearchRequest struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	Query     string            `json:"query"`
	K         int               `json:"k,omitempty"`
	Strategy  domain.StrategyID `json:"strategy,omitempty"`
	Verbose   bool              `json:"verbose,omitempty"`
}

type SearchResponse struct {
	ID         string                `json:"id"`
	Results    []domain.SearchResult `json:"results,omitempty"`
	Text       string                `json:"text,omitempty"`
	Comparison *domain.Comparison    `json:"comparison,omitempty"`
	ErrorKind  string                `json:"error_kind,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// remoteError carries a worker-side failure with its original kind restored.
type remoteError struct {
	kind    error
	message string
}

func (e *remoteError) Error() string { return e.message }

func (e *remoteError) Unwrap() error { return e.kind }

func (r SearchResponse) err() error {
	if r.Error == "" && r.ErrorKind == "" {
		return nil
	}
	kind := domain.KindFromName(r.ErrorKind)
	if kind == nil {
		return errors.New(r.Error)
	}
	return &remoteError{kind: kind, message: r.Error}
}
