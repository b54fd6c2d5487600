package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sayhello/sayhello/internal/app"
	"github.com/sayhello/sayhello/internal/directory"
)

func callSearch(t *testing.T, deps MCPDeps, args map[string]any) []map[string]any {
	t.Helper()
	handler := mcpSearchPartners(deps)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("search_partners: %v", err)
	}
	if res.IsError {
		t.Fatalf("search_partners returned tool error: %+v", res.Content)
	}

	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	var out []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("decoding tool output %q: %v", text.Text, err)
	}
	return out
}

func TestSearchPartnersTool(t *testing.T) {
	gw := &memGateway{profiles: []directory.Profile{
		seedProfile(idAnn, "Ann", "English", "Spanish", 2),
		seedProfile(idBob, "Bob", "French", "German", 1),
	}}
	ctrl := app.NewController(gw)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	deps := MCPDeps{App: ctrl, Version: "test", PageSize: 6}

	out := callSearch(t, deps, map[string]any{"native": "French"})
	if len(out) != 1 || out[0]["name"] != "Bob" {
		t.Errorf("filtered search = %+v", out)
	}

	// No arguments returns the whole directory, recent-first.
	out = callSearch(t, deps, nil)
	if len(out) != 2 || out[0]["name"] != "Ann" {
		t.Errorf("unfiltered search = %+v", out)
	}

	// Limit caps the result count.
	out = callSearch(t, deps, map[string]any{"limit": float64(1)})
	if len(out) != 1 {
		t.Errorf("limit=1 returned %d results", len(out))
	}
}

func TestLanguagesResource(t *testing.T) {
	handler := mcpResourceLanguages()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "directory://languages"

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("resource handler: %v", err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}

	var body struct {
		Languages []string `json:"languages"`
		Levels    []string `json:"levels"`
	}
	if err := json.Unmarshal([]byte(text.Text), &body); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(body.Languages) != len(directory.Languages) || len(body.Levels) != len(directory.Levels) {
		t.Errorf("resource body = %+v", body)
	}
}
