package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sayhello/sayhello/internal/app"
	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/query"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	App      *app.Controller
	Version  string
	PageSize int
}

// NewMCPServer creates a read-only MCP surface over the directory: agents
// can search for partners but never write.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"sayhello",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("sayhello — directory of language-exchange partners: search by language pair, interests, or free text."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_partners",
			mcp.WithDescription("Search the language-exchange directory. All filters are optional and combined with AND."),
			mcp.WithString("query", mcp.Description("Free-text search over name, bio, interests, and languages")),
			mcp.WithString("native", mcp.Description("Exact native language filter (e.g. \"Spanish\")")),
			mcp.WithString("practice", mcp.Description("Exact practice language filter")),
			mcp.WithString("sort", mcp.Description("Sort key: recent (default), name, native, practice")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 6)")),
		),
		mcpSearchPartners(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"directory://languages",
			"Supported Languages",
			mcp.WithResourceDescription("Languages and proficiency levels the directory accepts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLanguages(),
	)

	return s
}

func mcpSearchPartners(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", deps.PageSize)
		if limit <= 0 {
			limit = deps.PageSize
		}
		if limit > 50 {
			limit = 50
		}

		spec := query.Spec{
			Q:        req.GetString("query", ""),
			Native:   req.GetString("native", ""),
			Practice: req.GetString("practice", ""),
			Sort:     req.GetString("sort", query.SortRecent),
			Page:     1,
			PageSize: limit,
		}

		matches := deps.App.Query(spec)

		type partner struct {
			Name         string   `json:"name"`
			Email        string   `json:"email"`
			Native       string   `json:"native"`
			Practice     string   `json:"practice"`
			Level        string   `json:"level"`
			Availability string   `json:"availability,omitempty"`
			Interests    []string `json:"interests,omitempty"`
			Bio          string   `json:"bio,omitempty"`
		}

		results := make([]partner, len(matches))
		for i, p := range matches {
			results[i] = partner{
				Name:         p.Name,
				Email:        p.Email,
				Native:       p.Native,
				Practice:     p.Practice,
				Level:        p.Level,
				Availability: p.Availability,
				Interests:    p.Interests,
				Bio:          p.Bio,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceLanguages() server.ResourceHandlerFunc {
	return func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(map[string]any{
			"languages": directory.Languages,
			"levels":    directory.Levels,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal languages: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
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
