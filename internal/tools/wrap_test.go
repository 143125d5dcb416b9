package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
)

func TestWrapHandler(t *testing.T) {
	deps := &Backends{}
	var sawBackends *Backends
	var sawManager *metrics.Manager

	reg := &ToolRegistration{
		Name: "probe",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			sawBackends, _ = GetBackends(ctx)
			sawManager = metrics.GetManager(ctx)
			if args["fail"] == true {
				return ErrorResult("nope"), nil
			}
			return TextResult("ok"), nil
		},
	}

	mgr := metrics.NewManager(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := wrapHandler(reg, deps, mgr, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := mcp.CallToolRequest{}
	req.Params.Name = "probe"
	req.Params.Arguments = map[string]interface{}{}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Same(t, deps, sawBackends)
	assert.Same(t, mgr, sawManager)

	req.Params.Arguments = map[string]interface{}{"fail": true}
	result, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	rec := httptest.NewRecorder()
	mgr.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `purple_mcp_tool_calls_total{outcome="success",tool="probe"} 1`)
	assert.Contains(t, body, `purple_mcp_tool_calls_total{outcome="error",tool="probe"} 1`)
}

func TestFailureResult(t *testing.T) {
	result := FailureResult(context.Background(), "Failed to list alerts", errors.New("HTTP 503"))
	require.True(t, result.IsError)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Equal(t, "Failed to list alerts: HTTP 503", text.Text)
}

func TestGetBackends(t *testing.T) {
	_, err := GetBackends(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	b := &Backends{}
	got, err := GetBackends(WithBackends(context.Background(), b))
	require.NoError(t, err)
	assert.Same(t, b, got)
}
