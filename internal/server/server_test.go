package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"

	// Import tools to register them
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/ai"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/alerts"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/inventory"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/misconfigurations"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/query"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/vulnerabilities"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		ConsoleToken:                     "server-test-token",
		ConsoleBaseURL:                   baseURL,
		ConsoleGraphQLEndpoint:           config.DefaultConsoleGraphQLEndpoint,
		AlertsGraphQLEndpoint:            config.DefaultAlertsGraphQLEndpoint,
		MisconfigurationsGraphQLEndpoint: config.DefaultMisconfigurationsGraphQLEndpoint,
		VulnerabilitiesGraphQLEndpoint:   config.DefaultVulnerabilitiesGraphQLEndpoint,
		InventoryEndpoint:                config.DefaultInventoryRESTEndpoint,
		RequestTimeout:                   5 * time.Second,
		SDL:                              config.SDLConfig{PollInterval: 10 * time.Millisecond, PollTimeout: time.Second, MaxResults: 100},
		Features:                         config.Features{AlertsViewType: true, AlertsDataSources: true, MisconfigurationsViewType: true},
		Mode:                             config.ModeStdio,
		Profile:                          "all",
		LogLevel:                         "error",
	}
}

// call sends one JSON-RPC message through the MCP server and decodes the
// reply.
func call(t *testing.T, srv *Server, msg string) map[string]interface{} {
	t.Helper()
	reply := srv.MCPServer().HandleMessage(context.Background(), json.RawMessage(msg))
	raw, err := json.Marshal(reply)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func toolNames(t *testing.T, srv *Server) []string {
	t.Helper()
	resp := call(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "tools/list reply: %v", resp)

	var names []string
	for _, tool := range result["tools"].([]interface{}) {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	sort.Strings(names)
	return names
}

func TestNew(t *testing.T) {
	t.Run("creates server successfully", func(t *testing.T) {
		cfg := testConfig("https://example.sentinelone.net")

		srv, err := New(cfg, testLogger())

		require.NoError(t, err)
		assert.NotNil(t, srv.mcpServer)
		assert.Nil(t, srv.httpServer)
		assert.Equal(t, cfg, srv.config)
		assert.Equal(t, "server-test-token", srv.Live().AuthToken())
	})

	t.Run("creates server with nil logger", func(t *testing.T) {
		srv, err := New(testConfig("https://example.sentinelone.net"), nil)

		require.NoError(t, err)
		assert.NotNil(t, srv.logger)
	})

	t.Run("wires every backend", func(t *testing.T) {
		srv, err := New(testConfig("https://example.sentinelone.net"), testLogger())
		require.NoError(t, err)

		b := srv.backends
		assert.NotNil(t, b.Alerts)
		assert.NotNil(t, b.Vulnerabilities)
		assert.NotNil(t, b.Misconfigurations)
		assert.NotNil(t, b.Inventory)
		assert.NotNil(t, b.PurpleAI)
		assert.NotNil(t, b.PowerQuery)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := testConfig("https://example.sentinelone.net")
		cfg.Mode = "websocket"

		_, err := New(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown server mode: websocket")
	})

	t.Run("unknown profile", func(t *testing.T) {
		cfg := testConfig("https://example.sentinelone.net")
		cfg.Profile = "missing"

		_, err := New(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "missing" has no tools`)
	})

	t.Run("http mode builds the HTTP server", func(t *testing.T) {
		cfg := testConfig("https://example.sentinelone.net")
		cfg.Mode = config.ModeStreamableHTTP
		cfg.HTTPHost = "127.0.0.1"
		cfg.HTTPPort = 8123
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute}

		srv, err := New(cfg, testLogger())
		require.NoError(t, err)
		require.NotNil(t, srv.httpServer)
		assert.Equal(t, "127.0.0.1:8123", srv.httpServer.Addr())
		assert.NoError(t, srv.Close())
	})

	t.Run("unreachable redis fails", func(t *testing.T) {
		cfg := testConfig("https://example.sentinelone.net")
		cfg.Mode = config.ModeHTTP
		cfg.RedisURL = "redis://127.0.0.1:1/0"

		_, err := New(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create HTTP server")
	})
}

func TestRegisteredToolsFollowProfile(t *testing.T) {
	tests := []struct {
		profile string
		want    []string
	}{
		{
			profile: "core",
			want: []string{
				"get_alert", "get_inventory_item", "get_timestamp_range",
				"iso_to_unix_timestamp", "list_alerts", "purple_ai",
			},
		},
		{
			profile: "analytics",
			want:    []string{"get_timestamp_range", "iso_to_unix_timestamp", "powerquery", "purple_ai"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			cfg := testConfig("https://example.sentinelone.net")
			cfg.Profile = tt.profile

			srv, err := New(cfg, testLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, toolNames(t, srv))
		})
	}

	t.Run("all", func(t *testing.T) {
		srv, err := New(testConfig("https://example.sentinelone.net"), testLogger())
		require.NoError(t, err)
		assert.Len(t, toolNames(t, srv), 22)
	})
}

func TestServerIntegration(t *testing.T) {
	var gotAuth, gotPath string
	console := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"alert":{"id":"alert-1","name":"Suspicious process","severity":"HIGH"}}}`))
	}))
	t.Cleanup(console.Close)

	cfg := testConfig(console.URL)
	cfg.MetricsEnabled = true
	srv, err := New(cfg, testLogger())
	require.NoError(t, err)

	resp := call(t, srv, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_alert","arguments":{"alert_id":"alert-1"}}}`)
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "tools/call reply: %v", resp)
	assert.NotEqual(t, true, result["isError"])

	content := result["content"].([]interface{})
	require.Len(t, content, 1)
	text := content[0].(map[string]interface{})["text"].(string)

	var alert map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &alert))
	assert.Equal(t, "alert-1", alert["id"])
	assert.Equal(t, "Suspicious process", alert["name"])

	assert.Equal(t, "Bearer server-test-token", gotAuth)
	assert.Equal(t, config.DefaultAlertsGraphQLEndpoint, gotPath)

	// A rotated token applies to the next call
	srv.Live().SetToken("rotated-token")
	call(t, srv, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"get_alert","arguments":{"alert_id":"alert-1"}}}`)
	assert.Equal(t, "Bearer rotated-token", gotAuth)

	rec := httptest.NewRecorder()
	srv.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `purple_mcp_tool_calls_total{outcome="success",tool="get_alert"} 2`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig("https://example.sentinelone.net")
	cfg.Mode = config.ModeHTTP
	cfg.HTTPHost = "127.0.0.1"
	cfg.HTTPPort = 0

	srv, err := New(cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.NoError(t, srv.Close())
}

func TestToolMapResource(t *testing.T) {
	cfg := testConfig("https://example.sentinelone.net")
	cfg.Profile = "inventory"

	srv, err := New(cfg, testLogger())
	require.NoError(t, err)

	resp := call(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"purple://tool-relationships"}}`)
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "resources/read reply: %v", resp)
	contents := result["contents"].([]interface{})
	require.Len(t, contents, 1)

	var m struct {
		Relationships []map[string]string `json:"relationships"`
		EntryPoints   []string            `json:"entryPoints"`
	}
	require.NoError(t, json.Unmarshal([]byte(contents[0].(map[string]interface{})["text"].(string)), &m))
	assert.Len(t, m.Relationships, 2)
	assert.Equal(t, []string{"list_inventory_items"}, m.EntryPoints)
}
