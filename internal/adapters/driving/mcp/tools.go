package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string `json:"query" jsonschema:"the question or phrase to find passages for"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to return (default 6)"`
	Strategy string `json:"strategy,omitempty" jsonschema:"ranking strategy: mmr (default) or similarity"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is a single retrieved passage.
type ChunkOutput struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string   `json:"question" jsonschema:"the question to answer from the indexed documents"`
	K        int      `json:"k,omitempty" jsonschema:"number of passages to retrieve before answering"`
	Models   []string `json:"models,omitempty" jsonschema:"candidate models to try in order"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Model   string   `json:"model"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of the indexed PDFs most relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question grounded in the indexed PDFs",
	}, s.handleAsk)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Query == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("query: %w", domain.ErrInvalidInput)
	}

	strategy := domain.SearchStrategy(input.Strategy)
	if strategy != "" && !strategy.IsValid() {
		return nil, RetrieveOutput{}, fmt.Errorf("strategy %q: %w", input.Strategy, domain.ErrInvalidInput)
	}

	opts := domain.RetrievalOptions{K: input.K, Strategy: strategy}
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]ChunkOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = ChunkOutput{
			ID:     results[i].ID,
			Source: results[i].Source,
			Score:  results[i].Score,
			Text:   results[i].Text,
		}
	}

	return nil, output, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, domain.ErrLLMUnavailable
	}
	if input.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("question: %w", domain.ErrInvalidInput)
	}

	opts := domain.AnswerOptions{
		Retrieval: domain.RetrievalOptions{K: input.K},
		Models:    input.Models,
	}
	answer, err := s.ports.Answer.Ask(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: answer.Sources,
		Model:   answer.Model,
	}, nil
}
