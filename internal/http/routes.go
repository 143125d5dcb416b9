package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	switch s.config.Mode {
	case config.ModeSSE:
		sse := server.NewSSEServer(s.mcpServer,
			server.WithSSEEndpoint(PathSSE),
			server.WithMessageEndpoint(PathMessage),
		)
		s.mux.Handle(PathSSE, sse.SSEHandler())
		s.mux.Handle(PathMessage, sse.MessageHandler())
	default:
		streamable := server.NewStreamableHTTPServer(s.mcpServer,
			server.WithEndpointPath(PathMCP),
			server.WithStateLess(s.config.StatelessHTTP),
		)
		s.mux.Handle(PathMCP, streamable)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady reports whether the optional Redis backend answers. Without
// Redis the server is always ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	checks := map[string]interface{}{}

	if s.redisClient != nil {
		health := s.redisClient.Health(ctx)
		checks["redis"] = health
		if healthy, _ := health["healthy"].(bool); !healthy {
			status = "not_ready"
		}
	}

	statusCode := http.StatusOK
	if status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
