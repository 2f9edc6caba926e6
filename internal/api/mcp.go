package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
)

// MCPEmbedder embeds a search query for direct manual search.
type MCPEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MCPSearcher is the diversity-aware search surface over the manual chunks.
type MCPSearcher interface {
	SearchDiverse(vector []float32, fetchK, k int) ([]store.ScoredRecord, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Engine   AnswerEngine
	Embedder MCPEmbedder
	Chunks   MCPSearcher
	FetchK   int
}

// NewMCPServer creates an MCP server exposing the manual QA tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"manualqa",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("manualqa — question answering over home-appliance manuals, with optional product photo identification."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_manual",
			mcp.WithDescription("Answer a question about home appliances using the indexed manuals and web search. Optionally identify the product from a photo."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("image_path", mcp.Description("Optional path to a product photo for model identification")),
		),
		mcpAskManual(deps),
	)

	s.AddTool(
		mcp.NewTool("search_manuals",
			mcp.WithDescription("Semantically search the indexed manual chunks and return the raw passages."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of passages (default 5)")),
		),
		mcpSearchManuals(deps),
	)

	return s
}

func mcpAskManual(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		imagePath := req.GetString("image_path", "")

		result, err := deps.Engine.Answer(ctx, query, imagePath, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("answer generation failed: %v", err)), nil
		}
		return mcpText(result.Answer), nil
	}
}

func mcpSearchManuals(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		vec, err := deps.Embedder.Embed(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("query embedding failed: %v", err)), nil
		}

		fetchK := deps.FetchK
		if fetchK < limit {
			fetchK = limit
		}
		matches, err := deps.Chunks.SearchDiverse(vec, fetchK, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		type passage struct {
			SourceID    string  `json:"source_id"`
			ChunkIndex  int     `json:"chunk_index"`
			TotalChunks int     `json:"total_chunks"`
			Text        string  `json:"text"`
			Score       float32 `json:"score"`
		}

		results := make([]passage, len(matches))
		for i, m := range matches {
			results[i] = passage{
				SourceID:    m.SourceID,
				ChunkIndex:  m.ChunkIndex,
				TotalChunks: m.TotalChunks,
				Text:        m.Text,
				Score:       m.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
