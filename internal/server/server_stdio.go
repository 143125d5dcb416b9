package server

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

// serveStdio speaks MCP over stdin and stdout until ctx is cancelled or
// stdin closes. Logs go to stderr and never share stdout with the protocol.
func (s *Server) serveStdio(ctx context.Context) error {
	s.logger.Info("Serving via STDIO")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
