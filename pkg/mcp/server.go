// Package mcp exposes the flowchart generator as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/pkg/schema"
)

// CodeflowServerDeps holds the dependencies for creating a CodeflowServer.
// Store may be nil, in which case the history tools report an error.
type CodeflowServerDeps struct {
	Generator *flowchart.Generator
	Store     store.Store
	Logger    *slog.Logger
	Version   string
}

// CodeflowServer wraps an MCP server with codeflow tool handlers.
type CodeflowServer struct {
	generator *flowchart.Generator
	store     store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewCodeflowServer creates a new CodeflowServer with all 4 tools registered.
func NewCodeflowServer(deps CodeflowServerDeps) *CodeflowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &CodeflowServer{
		generator: deps.Generator,
		store:     deps.Store,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"codeflow",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Codeflow turns Java source into control-flow diagrams. Use codeflow.parse for Mermaid flowchart syntax, codeflow.render for dot, svg, png (base64) or ascii output, codeflow.diagram to fetch a stored diagram, and codeflow.history to list stored diagrams or recent builds."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *CodeflowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *CodeflowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *CodeflowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: parseTool(), Handler: s.handleParse},
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: historyTool(), Handler: s.handleHistory},
	}
}

// --- Tool definitions ---

func formatNames() []string {
	names := make([]string, len(schema.RenderFormats))
	for i, f := range schema.RenderFormats {
		names[i] = string(f)
	}
	return names
}

func parseTool() mcp.Tool {
	return mcp.NewTool("codeflow.parse",
		mcp.WithDescription("Generate a Mermaid flowchart from Java source"),
		mcp.WithString("code", mcp.Required(), mcp.Description("Java source: a class, a bare method, or bare statements")),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("codeflow.render",
		mcp.WithDescription("Render the flowchart of Java source in a given format"),
		mcp.WithString("code", mcp.Required(), mcp.Description("Java source: a class, a bare method, or bare statements")),
		mcp.WithString("format",
			mcp.Enum(formatNames()...),
			mcp.Description("Output format (default: mermaid). png is returned base64-encoded"),
		),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("codeflow.diagram",
		mcp.WithDescription("Fetch a stored diagram by ID"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Diagram ID")),
		mcp.WithString("format",
			mcp.Enum(formatNames()...),
			mcp.Description("Re-render in this format instead of returning the stored record"),
		),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("codeflow.history",
		mcp.WithDescription("List stored diagrams or recent builds"),
		mcp.WithString("resource", mcp.Required(),
			mcp.Enum("diagrams", "builds"),
			mcp.Description("Type of resource to list"),
		),
		mcp.WithObject("filter", mcp.Description("Filter criteria (limit, offset, since, outcome)")),
	)
}
