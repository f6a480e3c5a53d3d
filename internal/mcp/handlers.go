package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inkhouse/copydesk/internal/retrieval"
)

// handleSearchReferences performs semantic search over the reference corpora.
func (s *Server) handleSearchReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	if s.retriever == nil {
		return mcp.NewToolResultError("No reference corpus is indexed. Run `copydesk ingest` first."), nil
	}

	limit := request.GetInt("limit", retrieval.DefaultTopK)
	if limit <= 0 {
		limit = retrieval.DefaultTopK
	}

	corpora := retrieval.DefaultStyleGuides
	if corpusStr := request.GetString("corpus", ""); corpusStr != "" {
		corpora = nil
		for _, part := range strings.Split(corpusStr, ",") {
			if part = strings.TrimSpace(part); part != "" {
				corpora = append(corpora, part)
			}
		}
	}

	results, err := s.retriever.QueryReferences(ctx, query, corpora, retrieval.Options{TopK: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching references found."), nil
	}

	return mcp.NewToolResultText(retrieval.FormatReferenceContext(results, true)), nil
}

// handleGetManuscript returns a manuscript snapshot as indented JSON.
func (s *Server) handleGetManuscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("manuscript_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: manuscript_id"), nil
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading manuscript: %v", err)), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no manuscript with id %q", id)), nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding manuscript: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleGetContinuity returns the continuity ledger as indented JSON.
func (s *Server) handleGetContinuity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("manuscript_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: manuscript_id"), nil
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading manuscript: %v", err)), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no manuscript with id %q", id)), nil
	}

	data, err := json.MarshalIndent(doc.Continuity, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding ledger: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
