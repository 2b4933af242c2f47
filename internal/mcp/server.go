package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/flowdeck/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"todo_list": {
		def:     todoListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTodoList },
	},
	"record_inspect": {
		def:     recordInspectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordInspect },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with Flowdeck tools registered.
func NewServer(db *sql.DB, deps ops.Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"flowdeck",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, deps)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, deps ops.Deps, version string) error {
	s := NewServer(db, deps, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
