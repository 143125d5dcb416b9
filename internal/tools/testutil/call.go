package testutil

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

// CallTool runs a registered tool's handler with b attached to the context.
// It returns the result text and whether the result is an error.
func CallTool(t *testing.T, b *tools.Backends, name string, args map[string]interface{}) (string, bool) {
	t.Helper()

	reg, ok := tools.GetTool(name)
	require.True(t, ok, "%s tool not registered", name)

	ctx := context.Background()
	if b != nil {
		ctx = tools.WithBackends(ctx, b)
	}
	result, err := reg.Handler(ctx, args)
	require.NoError(t, err)
	require.NotNil(t, result)

	text, ok := ResultText(result)
	require.True(t, ok, "result has no text content")
	return text, result.IsError
}

// ResultText extracts the text content from an MCP CallToolResult
func ResultText(result *mcp.CallToolResult) (string, bool) {
	if len(result.Content) == 0 {
		return "", false
	}
	if textContent, ok := mcp.AsTextContent(result.Content[0]); ok {
		return textContent.Text, true
	}
	return "", false
}
