package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/server"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"

	// Import tool packages to trigger init() registration
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/ai"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/alerts"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/inventory"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/misconfigurations"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/query"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/vulnerabilities"
)

func main() {
	// Load configuration first to determine log level
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if cfg.DebugUnsafeLogging {
		logger.Warn("Unsafe debug logging is enabled, query variables and filter values will be logged")
	}

	if cfg.ProfilesConfigPath != "" {
		if err := tools.UseProfilesFile(cfg.ProfilesConfigPath); err != nil {
			logger.Error("Failed to load tool profiles", "path", cfg.ProfilesConfigPath, "error", err)
			os.Exit(1)
		}
		logger.Info("Loaded tool profiles", "path", cfg.ProfilesConfigPath)
	}

	logger.Info("Starting Purple MCP server",
		"version", config.Version,
		"mode", cfg.Mode,
		"profile", cfg.Profile)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := srv.Serve(ctx)

	if err := srv.Close(); err != nil {
		logger.Error("Error during server cleanup", "error", err)
	}
	if serveErr != nil {
		logger.Error("Server error", "error", serveErr)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
