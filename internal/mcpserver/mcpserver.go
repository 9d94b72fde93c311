// Package mcpserver exposes the tool registry over the Model Context
// Protocol.
package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agentic-research/yxflow/internal/tools"
)

// Name is the server name announced to clients.
const Name = "yxflow"

// New returns an MCP server offering every tool in reg.
func New(reg *tools.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(Name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range reg.Tools() {
		s.AddTool(Tool(t), Handler(reg, t.Name))
	}
	return s
}

// Tool converts a registry tool into its MCP declaration.
func Tool(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description),
		mcp.WithReadOnlyHintAnnotation(t.ReadOnly),
		mcp.WithDestructiveHintAnnotation(!t.ReadOnly),
	}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case tools.Integer:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case tools.Boolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case tools.IntegerList:
			props = append(props, mcp.Items(map[string]any{"type": "integer"}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			// Strings, and JSON documents passed as text.
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// Handler dispatches MCP calls of the named tool to reg. Tool failures are
// reported inside the result, never as protocol errors.
func Handler(reg *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := reg.Call(ctx, name, tools.Args(req.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(reg.Failure(name, err).Text), nil
		}
		if t, ok := reg.Lookup(name); ok && t.Structured && res.Data != nil {
			return mcp.NewToolResultStructured(res.Data, res.Text), nil
		}
		return mcp.NewToolResultText(res.Text), nil
	}
}

// ServeStdio serves s over in and out until ctx is done or in is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, log *zap.SugaredLogger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(zap.NewStdLog(log.Desugar()))
	log.Infow("serving MCP over stdio", "server", Name)
	return stdio.Listen(ctx, in, out)
}
