package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stacks/pkg/utils"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var (
	queryToolName    = "query_documents"
	queryDescription = "Search across all ingested documents using semantic search. Returns the most relevant text chunks for the query, with their source document collections."
)

// QueryInput represents the input arguments for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant document chunks"`
	Limit int    `json:"limit,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// QueryResult represents a single query result.
type QueryResult struct {
	ChunkID    string  `json:"chunk_id"`
	Collection string  `json:"collection"`
	Distance   float32 `json:"distance"`
	Document   string  `json:"document,omitempty"`
	Preview    string  `json:"preview"`
}

// QueryOutput represents the output of the query tool.
type QueryOutput struct {
	Query   string        `json:"query"`
	Results []QueryResult `json:"results"`
	Count   int           `json:"count"`
}

// handleQueryDocuments processes a federated query request.
func (s *Server) handleQueryDocuments(ctx context.Context, req *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	logger := s.config.Logger

	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	logger.Debug("MCP query request",
		"query", input.Query,
		"limit", limit,
	)

	results, err := s.config.Engine.Query(ctx, input.Query, limit)
	if err != nil {
		logger.Error("failed to run federated query", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to query documents: %v", err)},
			},
		}, QueryOutput{}, nil
	}

	queryResults := make([]QueryResult, len(results))
	for i, result := range results {
		queryResults[i] = buildQueryResult(result)
	}

	output := QueryOutput{
		Query:   input.Query,
		Results: queryResults,
		Count:   len(queryResults),
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal query output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, QueryOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// buildQueryResult converts a vector query result into a QueryResult.
func buildQueryResult(result vector.QueryResult) QueryResult {
	return QueryResult{
		ChunkID:    result.ID,
		Collection: result.Collection,
		Distance:   result.Distance,
		Document:   result.Metadata["original_name"],
		Preview:    utils.Truncate(result.Text, 200),
	}
}
