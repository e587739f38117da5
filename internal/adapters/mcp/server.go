// Package mcpadapter exposes retrieval as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

const maxToolK = 50

type Options struct {
	DefaultStrategy domain.StrategyID
	DefaultTopK     int
}

type Tools struct {
	searcher ports.DocumentSearcher
	answerer ports.QuestionAnswerer
	logger   *zap.Logger
	opts     Options
}

func NewTools(searcher ports.DocumentSearcher, answerer ports.QuestionAnswerer, logger *zap.Logger, opts Options) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = domain.StrategyPassthrough
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 10
	}
	return &Tools{searcher: searcher, answerer: answerer, logger: logger, opts: opts}
}

// NewServer registers the retrieval tools on a fresh MCP server.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	s.AddTool(searchDocumentsTool(), tools.SearchDocuments)
	if tools.answerer != nil {
		s.AddTool(answerQuestionTool(), tools.AnswerQuestion)
	}
	return s
}

func strategyNames() []string {
	out := make([]string, 0, len(domain.Strategies()))
	for _, s := range domain.Strategies() {
		out = append(out, string(s))
	}
	return out
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Search the document collection, optionally reformulating the query first"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question or keywords"),
		),
		mcp.WithNumber("k",
			mcp.Description(fmt.Sprintf("Maximum results to return (max: %d)", maxToolK)),
		),
		mcp.WithString("strategy",
			mcp.Description("Reformulation strategy"),
			mcp.Enum(strategyNames()...),
		),
	)
}

func answerQuestionTool() mcp.Tool {
	return mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a question using only passages retrieved from the document collection"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of passages to use as context"),
		),
		mcp.WithString("strategy",
			mcp.Description("Reformulation strategy"),
			mcp.Enum(strategyNames()...),
		),
	)
}

func (t *Tools) SearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("Error: query parameter is required"), nil
	}
	strategy, k, errResult := t.parseCommon(request)
	if errResult != nil {
		return errResult, nil
	}

	results, err := t.searcher.Search(ctx, query, k, strategy)
	if err != nil {
		t.logger.Error("mcp_search_failed", zap.String("strategy", string(strategy)), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Search error (%s): %v", domain.KindOf(err), err)), nil
	}
	return mcp.NewToolResultText(formatSearchResults(query, strategy, results)), nil
}

func (t *Tools) AnswerQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("Error: question parameter is required"), nil
	}
	strategy, k, errResult := t.parseCommon(request)
	if errResult != nil {
		return errResult, nil
	}

	answer, err := t.answerer.Answer(ctx, question, k, strategy)
	if err != nil {
		t.logger.Error("mcp_answer_failed", zap.String("strategy", string(strategy)), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Answer error (%s): %v", domain.KindOf(err), err)), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func (t *Tools) parseCommon(request mcp.CallToolRequest) (domain.StrategyID, int, *mcp.CallToolResult) {
	strategy := t.opts.DefaultStrategy
	if raw := request.GetString("strategy", ""); raw != "" {
		parsed, err := domain.ParseStrategy(raw)
		if err != nil {
			return "", 0, mcp.NewToolResultError(fmt.Sprintf("Error: %v", err))
		}
		strategy = parsed
	}
	k := request.GetInt("k", t.opts.DefaultTopK)
	if k <= 0 {
		k = t.opts.DefaultTopK
	}
	if k > maxToolK {
		k = maxToolK
	}
	return strategy, k, nil
}

func formatSearchResults(query string, strategy domain.StrategyID, results []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Results for %q (%s)\n\n", query, strategy)
	if len(results) == 0 {
		b.WriteString("No documents found.\n")
		return b.String()
	}
	for i, r := range results {
		source := "N/A"
		if r.SourceID != "" {
			source = filepath.Base(r.SourceID)
		}
		page := "N/A"
		if r.Page != nil {
			page = fmt.Sprintf("%d", *r.Page)
		}
		fmt.Fprintf(&b, "## %d. %s (page %s, distance %.4f)\n\n%s\n\n", i+1, source, page, r.Distance, strings.TrimSpace(r.Content))
	}
	return b.String()
}
