package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools.
func (m *MCPServer) registerTools() {
	m.mcpServer.AddTool(newSearchErrorsTool(), m.handleSearchErrorsInFile)
	m.mcpServer.AddTool(newWhoamiTool(), m.handleWhoami)
}

// newSearchErrorsTool returns the search_errors_in_file tool definition.
func newSearchErrorsTool() mcp.Tool {
	return mcp.NewTool("search_errors_in_file",
		mcp.WithDescription("Search Sentry for unresolved application errors whose stack traces touch a source file, and return a Markdown incident summary with stack traces"),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Source file name to search for (a bare basename matches nested paths)"),
		),
	)
}

// newWhoamiTool returns the whoami tool definition. It lets an agent
// verify the authentication state without triggering an upstream search.
func newWhoamiTool() mcp.Tool {
	return mcp.NewTool("whoami",
		mcp.WithDescription("Report whether the server currently holds a Sentry access token and which organization it queries"),
	)
}
