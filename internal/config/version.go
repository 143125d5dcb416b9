package config

import "fmt"

// Version is the server version, overridden at build time with
// -ldflags "-X github.com/robemmerson/s1-purple-mcp-sub002/internal/config.Version=...".
var Version = "0.1.0"

// ServerName is advertised to MCP clients.
const ServerName = "purple-mcp"

// UserAgent is sent on every outbound request.
func UserAgent() string {
	return fmt.Sprintf("sentinelone/purple-mcp (version %s)", Version)
}
