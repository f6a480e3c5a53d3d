// Package mcp exposes the editing desk to MCP clients: reference search,
// manuscript snapshots, and the continuity ledger.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes editing-desk tools.
type Server struct {
	repo      manuscript.Repository
	retriever *retrieval.Retriever
	mcp       *server.MCPServer
}

// NewServer creates an MCP server with the given dependencies. retriever may
// be nil, which makes search_references report that no corpus is indexed.
func NewServer(repo manuscript.Repository, retriever *retrieval.Retriever) *Server {
	s := &Server{
		repo:      repo,
		retriever: retriever,
	}

	s.mcp = server.NewMCPServer(
		"copydesk",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchReferencesTool, s.handleSearchReferences)
	s.mcp.AddTool(getManuscriptTool, s.handleGetManuscript)
	s.mcp.AddTool(getContinuityTool, s.handleGetContinuity)
}

// Serve starts the MCP server on stdio. Stdout carries protocol messages;
// all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
