// Package mcp exposes the sandboxed workspace tools over the Model Context
// Protocol, so external MCP hosts can use the same read-only list/read/
// search operations, with the same limits, that plan execution uses.
package mcp

import (
	"context"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/m-mizutani/ploom/tools"
)

// Server serves the workspace tools over MCP.
type Server struct {
	srv *server.MCPServer
	ws  tools.Workspace
}

// NewServer creates an MCP server named name/version over the given
// workspace.
func NewServer(ws tools.Workspace, name, version string) *Server {
	s := &Server{
		srv: server.NewMCPServer(name, version),
		ws:  ws,
	}

	s.srv.AddTool(mcpgo.NewTool("list_files",
		mcpgo.WithDescription("List the immediate entries of a directory inside the workspace, directories suffixed with /"),
		mcpgo.WithString("path",
			mcpgo.Description("Directory path relative to the workspace root"),
			mcpgo.Required(),
		),
	), s.handleListFiles)

	s.srv.AddTool(mcpgo.NewTool("read_file",
		mcpgo.WithDescription("Read the text content of one file inside the workspace (truncated past 2000 characters)"),
		mcpgo.WithString("path",
			mcpgo.Description("File path relative to the workspace root"),
			mcpgo.Required(),
		),
	), s.handleReadFile)

	s.srv.AddTool(mcpgo.NewTool("search_text",
		mcpgo.WithDescription("Search file contents for a case-insensitive pattern, breadth-first, bounded by file and match budgets"),
		mcpgo.WithString("pattern",
			mcpgo.Description("Regular expression; falls back to substring matching when invalid"),
			mcpgo.Required(),
		),
		mcpgo.WithString("path",
			mcpgo.Description("Directory to search under, relative to the workspace root (defaults to the root)"),
		),
	), s.handleSearchText)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.srv)
}

func (s *Server) handleListFiles(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path, _ := req.Params.Arguments["path"].(string)
	out, err := tools.ListFiles(ctx, s.ws, path)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(out), nil
}

func (s *Server) handleReadFile(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	path, _ := req.Params.Arguments["path"].(string)
	out, err := tools.ReadFile(ctx, s.ws, path)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(out), nil
}

func (s *Server) handleSearchText(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	pattern, _ := req.Params.Arguments["pattern"].(string)
	path, _ := req.Params.Arguments["path"].(string)

	arg := pattern
	if path != "" {
		arg = pattern + " | " + path
	}
	out, err := tools.SearchText(ctx, s.ws, arg)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(out), nil
}
