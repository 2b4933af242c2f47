package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, deps ops.Deps) *Handlers {
	return &Handlers{db: db, deps: deps}
}

// Request types for each tool

// TodoListRequest represents the arguments for todo_list.
type TodoListRequest struct {
	Token  string `json:"token"`
	DocID  string `json:"doc_id,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Cursor int    `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// RecordInspectRequest represents the arguments for record_inspect.
type RecordInspectRequest struct {
	ID string `json:"id"`
}

// HandleTodoList handles the todo_list tool call.
func (h *Handlers) HandleTodoList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TodoListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.TodoList(ctx, h.deps, ops.TodoListInput{
		Token:  input.Token,
		DocID:  input.DocID,
		Mode:   input.Mode,
		Cursor: input.Cursor,
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRecordInspect handles the record_inspect tool call.
func (h *Handlers) HandleRecordInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordInspectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Inspect(h.db, ops.InspectInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if flowErr, ok := err.(*errors.FlowError); ok {
		errorObj := map[string]any{
			"code":    flowErr.Code,
			"message": flowErr.Message,
			"status":  flowErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if flowErr.Code != errors.ErrInternal && flowErr.Details != nil {
			errorObj["details"] = flowErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
