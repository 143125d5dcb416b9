package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	httpserver "github.com/robemmerson/s1-purple-mcp-sub002/internal/http"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/resources"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"
)

// Server wraps the MCP server with our configuration
type Server struct {
	mcpServer  *server.MCPServer
	httpServer *httpserver.Server
	config     *config.Config
	live       *config.Live
	backends   *tools.Backends
	metrics    *metrics.Manager
	logger     *slog.Logger
}

// New creates the MCP server, its console clients and, for the HTTP modes,
// the HTTP server in front of it.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	}

	mgr := metrics.NewManager(cfg.MetricsEnabled, logger)
	live := config.NewLive(cfg)

	s := &Server{
		config:   cfg,
		live:     live,
		backends: newBackends(live, mgr, logger),
		metrics:  mgr,
		logger:   logger,
		mcpServer: server.NewMCPServer(
			config.ServerName,
			config.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	switch {
	case cfg.Mode == config.ModeStdio:
	case cfg.IsHTTP():
		httpSrv, err := s.newHTTPServer()
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP server: %w", err)
		}
		s.httpServer = httpSrv
	default:
		return nil, fmt.Errorf("unknown server mode: %s", cfg.Mode)
	}

	logger.Info("Purple MCP server initialized",
		"version", config.Version,
		"profile", cfg.Profile,
		"mode", cfg.Mode,
		"environment", cfg.Environment,
		"console", cfg.ConsoleBaseURL)

	return s, nil
}

// registerTools registers the tools of the configured profile and the
// resource describing how they chain.
func (s *Server) registerTools() error {
	count, err := tools.AddToolsToServer(s.mcpServer, s.config.Profile, s.backends, s.metrics, s.logger)
	if err != nil {
		return err
	}
	s.logger.Info("Registered tools", "profile", s.config.Profile, "count", count)

	resources.AddResourcesToServer(s.mcpServer, tools.GetToolsForProfile(s.config.Profile))
	return nil
}

// Serve runs the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting server", "mode", s.config.Mode)

	if s.httpServer != nil {
		return s.httpServer.Serve(ctx)
	}
	return s.serveStdio(ctx)
}

// MCPServer exposes the protocol server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Live returns the settings that may change while the server runs.
func (s *Server) Live() *config.Live {
	return s.live
}

// Close gracefully shuts down the server and releases resources
func (s *Server) Close() error {
	if s.httpServer != nil {
		if err := s.httpServer.Close(); err != nil {
			s.logger.Error("Failed to close HTTP server", "error", err)
			return err
		}
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
