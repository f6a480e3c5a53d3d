package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchReferencesTool defines the search_references MCP tool.
var searchReferencesTool = mcp.NewTool("search_references",
	mcp.WithDescription("Search the reference corpora (style guides, genre conventions) semantically. Returns cited rule excerpts."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language query, e.g. a sentence to check or a rule topic"),
	),
	mcp.WithString("corpus",
		mcp.Description("Comma-separated corpus ids to search (default: the style guide set)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// getManuscriptTool defines the get_manuscript MCP tool.
var getManuscriptTool = mcp.NewTool("get_manuscript",
	mcp.WithDescription("Get a manuscript snapshot: metadata, workflow progress, and per-stage analysis results."),
	mcp.WithString("manuscript_id",
		mcp.Required(),
		mcp.Description("Manuscript id"),
	),
)

// getContinuityTool defines the get_continuity MCP tool.
var getContinuityTool = mcp.NewTool("get_continuity",
	mcp.WithDescription("Get the continuity ledger of a manuscript: characters, locations, timeline, and terminology."),
	mcp.WithString("manuscript_id",
		mcp.Required(),
		mcp.Description("Manuscript id"),
	),
)
