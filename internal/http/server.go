package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/ratelimit"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/redis"
)

// MCP endpoint paths.
const (
	PathMCP     = "/mcp"
	PathSSE     = "/sse"
	PathMessage = "/message"
)

// Server serves the MCP protocol over HTTP, next to the health, readiness
// and metrics endpoints.
type Server struct {
	config      *config.Config
	logger      *slog.Logger
	mux         *http.ServeMux
	server      *http.Server
	mcpServer   *server.MCPServer
	redisClient *redis.Client
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Manager
}

// Deps are the optional collaborators of the HTTP server. Any of them may be
// nil.
type Deps struct {
	Redis       *redis.Client
	RateLimiter *ratelimit.Limiter
	Metrics     *metrics.Manager
}

// New creates the HTTP server for cfg.Mode, which must be one of the HTTP
// transport modes.
func New(cfg *config.Config, logger *slog.Logger, mcpServer *server.MCPServer, deps Deps) (*Server, error) {
	if !cfg.IsHTTP() {
		return nil, fmt.Errorf("transport mode %q is not served over HTTP", cfg.Mode)
	}

	s := &Server{
		config:      cfg,
		logger:      logger,
		mux:         http.NewServeMux(),
		mcpServer:   mcpServer,
		redisClient: deps.Redis,
		rateLimiter: deps.RateLimiter,
		metrics:     deps.Metrics,
	}
	s.setupRoutes()

	// No write timeout: SSE streams stay open and a PowerQuery may poll for
	// longer than any fixed bound.
	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(cfg.HTTPPort)),
		Handler:           s.withMiddleware(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		"addr", s.server.Addr,
		"mode", s.config.Mode,
		"stateless", s.config.StatelessHTTP)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		s.logger.Info("HTTP server stopped gracefully")
		return nil

	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close releases the Redis client.
func (s *Server) Close() error {
	if s.redisClient == nil {
		return nil
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", "error", err)
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response using ResponseWriter
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	rw := NewResponseWriter(w, s.logger)
	rw.WriteJSON(status, data)
}
