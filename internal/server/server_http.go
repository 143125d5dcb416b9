package server

import (
	httpserver "github.com/robemmerson/s1-purple-mcp-sub002/internal/http"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/logging"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/ratelimit"
	"github.com/robemmerson/s1-purple-mcp-sub002/internal/redis"
)

// newHTTPServer builds the HTTP transport with its optional Redis backed
// rate limiter.
func (s *Server) newHTTPServer() (*httpserver.Server, error) {
	deps := httpserver.Deps{Metrics: s.metrics}

	if s.config.RedisURL != "" {
		client, err := redis.New(&redis.Config{URL: s.config.RedisURL}, logging.NewLogrusLogger(logging.ParseLevel(s.config.LogLevel)))
		if err != nil {
			return nil, err
		}
		deps.Redis = client
	}

	if s.config.RateLimit.Enabled {
		deps.RateLimiter = ratelimit.NewLimiter(deps.Redis, ratelimit.Config{
			MaxRequests: s.config.RateLimit.Requests,
			Window:      s.config.RateLimit.Window,
		}, s.logger)
		s.logger.Info("Rate limiting enabled",
			"backend", deps.RateLimiter.Backend(),
			"requests", s.config.RateLimit.Requests,
			"window", s.config.RateLimit.Window)
	}

	httpSrv, err := httpserver.New(s.config, s.logger, s.mcpServer, deps)
	if err != nil {
		if deps.Redis != nil {
			_ = deps.Redis.Close()
		}
		return nil, err
	}
	return httpSrv, nil
}
