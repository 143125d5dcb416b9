package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
)

// ProfileAll exposes every registered tool.
const ProfileAll = "all"

// ToolHandler is the function signature for MCP tool handlers
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error)

// ToolRegistration holds a tool's metadata and handler
type ToolRegistration struct {
	Name        string
	Description string
	Handler     ToolHandler
	Schema      mcp.Tool
	Profile     string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*ToolRegistration)
)

// ProfileDefinitions maps a profile to its tool names. It is replaced by
// configs/profiles.yaml when that file is found.
var ProfileDefinitions = map[string][]string{
	"core": {
		"purple_ai",
		"iso_to_unix_timestamp",
		"get_timestamp_range",
		"get_alert",
		"list_alerts",
		"get_inventory_item",
	},
	"alerts": {
		"get_alert",
		"list_alerts",
		"search_alerts",
		"get_alert_notes",
		"get_alert_history",
		"iso_to_unix_timestamp",
	},
	"posture": {
		"get_vulnerability",
		"list_vulnerabilities",
		"search_vulnerabilities",
		"get_vulnerability_notes",
		"get_vulnerability_history",
		"get_misconfiguration",
		"list_misconfigurations",
		"search_misconfigurations",
		"get_misconfiguration_notes",
		"get_misconfiguration_history",
		"iso_to_unix_timestamp",
	},
	"inventory": {
		"get_inventory_item",
		"list_inventory_items",
		"search_inventory_items",
	},
	"analytics": {
		"purple_ai",
		"powerquery",
		"get_timestamp_range",
		"iso_to_unix_timestamp",
	},
}

// RegisterTool adds a tool to the registry
func RegisterTool(reg *ToolRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Name] = reg
}

// GetTool retrieves a tool from the registry
func GetTool(name string) (*ToolRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tool, ok := registry[name]
	return tool, ok
}

// RegisteredTools returns the sorted names of every registered tool.
func RegisteredTools() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolsForProfile returns the tool names of a profile, sorted. The "all"
// profile is every registered tool.
func GetToolsForProfile(profile string) []string {
	if profile == ProfileAll {
		return RegisteredTools()
	}

	names, ok := ProfileDefinitions[profile]
	if !ok {
		return []string{}
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

// ValidateToolNames checks that every name is a registered tool.
func ValidateToolNames(names []string) error {
	var unknown []string
	for _, name := range names {
		if _, ok := GetTool(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown tools: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// AddToolsToServer adds the tools of a profile to an MCP server. deps, when
// not nil, is attached to the context of every call together with mgr.
func AddToolsToServer(s *server.MCPServer, profile string, deps *Backends, mgr *metrics.Manager, logger *slog.Logger) (int, error) {
	names := GetToolsForProfile(profile)
	if len(names) == 0 {
		return 0, fmt.Errorf("profile %q has no tools", profile)
	}
	if err := ValidateToolNames(names); err != nil {
		return 0, fmt.Errorf("profile %q: %w", profile, err)
	}

	for _, name := range names {
		reg, _ := GetTool(name)
		s.AddTool(reg.Schema, wrapHandler(reg, deps, mgr, logger))
	}
	return len(names), nil
}

// wrapHandler converts our ToolHandler to mcp-go's expected signature and
// records the outcome of every call.
func wrapHandler(reg *ToolRegistration, deps *Backends, mgr *metrics.Manager, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps != nil {
			ctx = WithBackends(ctx, deps)
		}
		if mgr != nil {
			ctx = metrics.WithManager(ctx, mgr)
		}

		start := time.Now()
		result, err := reg.Handler(ctx, request.GetArguments())
		elapsed := time.Since(start)

		outcome := "success"
		if err != nil || (result != nil && result.IsError) {
			outcome = "error"
		}
		metrics.GetManager(ctx).RecordToolCall(reg.Name, outcome, elapsed)

		if logger != nil {
			logger.Debug("Tool call finished",
				"tool", reg.Name,
				"outcome", outcome,
				"duration_ms", elapsed.Milliseconds())
		}
		return result, err
	}
}

// ToJSON converts a value to indented JSON without HTML escaping
func ToJSON(v interface{}) string {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(v); err != nil {
		return fmt.Sprintf("{\"error\": \"failed to marshal JSON: %v\"}", err)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// SuccessResult creates a successful tool result
func SuccessResult(data interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(ToJSON(data))
}

// TextResult returns text as is.
func TextResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// ErrorResult creates an error tool result
func ErrorResult(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// FailureResult logs a backend failure and reports it as "msg: err".
func FailureResult(ctx context.Context, msg string, err error) *mcp.CallToolResult {
	slog.Default().ErrorContext(ctx, msg, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
}

// ErrorResultf creates an error tool result with formatting
func ErrorResultf(format string, args ...interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}
