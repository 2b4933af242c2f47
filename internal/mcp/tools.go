package mcp

import "github.com/mark3labs/mcp-go/mcp"

var todoListToolDef = mcp.NewTool("todo_list",
	mcp.WithDescription("List outstanding todo records from the caller's sync document. Returns numbered text suitable for reading aloud plus structured items."),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Bearer identity token for the remote document store."),
	),
	mcp.WithString("doc_id",
		mcp.Description("Sync document id. Defaults to the configured document."),
	),
	mcp.WithString("mode",
		mcp.Description("Projection mode: all, unclassified, ai_done, ai_high, ai_mid, or self. Defaults to unclassified."),
	),
	mcp.WithNumber("cursor",
		mcp.Description("Absolute position in the filtered list to start from. Defaults to 0."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Number of items to return, 1 to 100. Defaults to 1."),
	),
)

var recordInspectToolDef = mcp.NewTool("record_inspect",
	mcp.WithDescription("Fetch one cached record by id, including its normalized content."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Record id."),
	),
)
