package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklens/sentry-mcp/internal/sentry"
)

// accessToken resolves the bearer token for a tool call: an explicitly
// configured token wins, otherwise the token obtained through the OAuth
// flow. An empty result means the call cannot be authenticated.
func (m *MCPServer) accessToken() string {
	if m.cfg.Sentry.AuthToken != "" {
		return m.cfg.Sentry.AuthToken
	}
	if token, ok := m.tokens.Current(); ok {
		return token.AccessToken
	}
	return ""
}

// handleSearchErrorsInFile handles the search_errors_in_file tool request.
// Pipeline failures are captured to the reporter and surfaced as a
// transport-success, isError tool result; no Go error crosses the tool
// boundary for semantic failures.
func (m *MCPServer) handleSearchErrorsInFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := request.RequireString("filename")
	if err != nil || filename == "" {
		return mcp.NewToolResultError("missing or invalid 'filename' argument"), nil
	}

	token := m.accessToken()
	if token == "" {
		return mcp.NewToolResultError("not authenticated with Sentry: complete the OAuth flow or configure an auth token"), nil
	}

	report, err := m.sentry.SearchErrorsInFile(ctx, sentry.SearchRequest{
		Filename:     filename,
		AccessToken:  token,
		Organization: m.cfg.Sentry.Organization,
	})
	if err != nil {
		eventID := m.reporter.CaptureException(err, map[string]any{
			"tool":         "search_errors_in_file",
			"filename":     filename,
			"organization": m.cfg.Sentry.Organization,
		})
		m.logger.Error("search_errors_in_file failed (event %s): %v", eventID, err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(report), nil
}

// handleWhoami handles the whoami tool request.
func (m *MCPServer) handleWhoami(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authenticated := m.accessToken() != ""
	return mcp.NewToolResultText(fmt.Sprintf(
		"authenticated: %t\norganization: %s\nupstream: %s\n",
		authenticated, m.cfg.Sentry.Organization, m.sentry.BaseURL(),
	)), nil
}
