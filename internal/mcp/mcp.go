// Package mcp exposes the movie toolbox over the Model Context Protocol.
//
// The server registers the same two tools the conversational agent calls
// internally, so MCP-compatible clients can query the dataset directly
// without going through the reasoning loop. Tool failures come back as
// error results, never as protocol errors, so callers always get a
// readable message.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/tools"
	"github.com/marquee-ai/marquee/internal/version"
)

// Server wraps the MCP server around the movie toolbox.
type Server struct {
	mcpServer *mcpserver.MCPServer
	sql       tools.Tool
	semantic  tools.Tool
	log       *logging.Logger
}

// New creates an MCP server exposing the structured-query and
// semantic-search tools. Both tools keep their registry names so a
// client sees the same surface the agent does.
func New(sql, semantic tools.Tool, log *logging.Logger) *Server {
	s := &Server{
		sql:      sql,
		semantic: semantic,
		log:      log.Sub("mcp"),
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"marquee",
		version.Version,
		mcpserver.WithToolCapabilities(false),
	)
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("serving MCP over stdio")
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool(s.sql.Name(),
			mcplib.WithDescription(s.sql.Description()),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("request",
				mcplib.Description("Natural-language description of the rows or aggregate to fetch"),
				mcplib.Required(),
			),
		),
		s.handleStructuredQuery,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool(s.semantic.Name(),
			mcplib.WithDescription(s.semantic.Description()),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("Plot or theme description to search for"),
				mcplib.Required(),
			),
			mcplib.WithNumber("k",
				mcplib.Description("Number of matches to return"),
				mcplib.Min(1),
				mcplib.Max(50),
				mcplib.DefaultNumber(5),
			),
		),
		s.handleSemanticSearch,
	)
}

func (s *Server) handleStructuredQuery(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	req := request.GetString("request", "")
	if req == "" {
		return errorResult("request is required"), nil
	}

	args, err := json.Marshal(map[string]any{"request": req})
	if err != nil {
		return errorResult(fmt.Sprintf("encode arguments: %v", err)), nil
	}

	out, err := s.sql.Execute(ctx, args)
	if err != nil {
		return errorResult(fmt.Sprintf("query failed: %v", err)), nil
	}
	return textResult(out), nil
}

func (s *Server) handleSemanticSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}

	// Leave k out when the client did not send one so the tool's own
	// default applies.
	argMap := map[string]any{"query": query}
	if k := request.GetInt("k", 0); k > 0 {
		argMap["k"] = k
	}
	args, err := json.Marshal(argMap)
	if err != nil {
		return errorResult(fmt.Sprintf("encode arguments: %v", err)), nil
	}

	out, err := s.semantic.Execute(ctx, args)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}
	return textResult(out), nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
