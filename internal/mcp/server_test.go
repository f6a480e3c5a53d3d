package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inkhouse/copydesk/internal/manuscript"
)

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content is not text: %T", result.Content[0])
	}
	return tc.Text
}

func seededServer(t *testing.T) *Server {
	t.Helper()
	repo := manuscript.NewMemoryRepository()
	doc := manuscript.NewDocument("ms-1")
	doc.ApplyUpsert("Chapter one.", manuscript.Metadata{Title: "The Long Rain"}, time.Now())
	doc.Continuity.Merge(manuscript.LedgerDelta{
		Characters: map[string]manuscript.CharacterRecord{"Mara": {FirstMention: "ch1"}},
	})
	if err := repo.Put(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	return NewServer(repo, nil)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_references", searchReferencesTool, "search_references"},
		{"get_manuscript", getManuscriptTool, "get_manuscript"},
		{"get_continuity", getContinuityTool, "get_continuity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestHandleGetManuscript(t *testing.T) {
	srv := seededServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"manuscript_id": "ms-1"}

	result, err := srv.handleGetManuscript(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !strings.Contains(textContent(t, result), "The Long Rain") {
		t.Error("snapshot should include the manuscript title")
	}
}

func TestHandleGetManuscriptMissing(t *testing.T) {
	srv := seededServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"manuscript_id": "nope"}

	result, err := srv.handleGetManuscript(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown manuscript")
	}
}

func TestHandleGetContinuity(t *testing.T) {
	srv := seededServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"manuscript_id": "ms-1"}

	result, err := srv.handleGetContinuity(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !strings.Contains(textContent(t, result), "Mara") {
		t.Error("ledger output should include recorded characters")
	}
}

func TestHandleSearchReferencesUnconfigured(t *testing.T) {
	srv := seededServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "serial comma"}

	result, err := srv.handleSearchReferences(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("search without an index should report a tool error")
	}
}

func TestHandleSearchReferencesMissingQuery(t *testing.T) {
	srv := seededServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := srv.handleSearchReferences(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing query")
	}
}
