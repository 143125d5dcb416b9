package http

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/metrics"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "request_id"
)

// Paths that bypass rate limiting so probes and scrapes never fail.
var unlimitedPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// withMiddleware wraps the handler with the middleware chain. The last
// wrapper runs first.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	handler := next

	handler = s.rateLimitMiddleware(handler)
	handler = s.bodySizeLimitMiddleware(handler)
	handler = securityHeaders(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	handler = RequestLogger(s.logger)(handler)
	handler = PanicRecovery(s.logger)(handler)
	handler = RequestID()(handler)

	return handler
}

// bodySizeLimitMiddleware limits request body size to prevent memory exhaustion
func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	limit := s.config.MaxBodyBytes
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			NewResponseWriter(w, s.logger).WriteError(http.StatusRequestEntityTooLarge,
				"request_too_large", fmt.Sprintf("Request body exceeds %d bytes", limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security headers to all responses. Nothing served
// here is meant for a browser.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies the per-client budget. A failing counter
// store lets the request through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil || unlimitedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		key := "client:" + getClientIP(r)
		decision, err := s.rateLimiter.Allow(r.Context(), key)
		if err != nil {
			s.logger.Warn("Rate limit check error",
				"error", err,
				"backend", s.rateLimiter.Backend(),
				"request_id", GetRequestID(r.Context()))
		}

		resetSeconds := int(math.Ceil(decision.Reset.Seconds()))
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		h.Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

		if !decision.Allowed {
			s.metrics.RecordRateLimited(s.rateLimiter.Backend())
			h.Set("Retry-After", strconv.Itoa(max(resetSeconds, 1)))
			NewResponseWriter(w, s.logger).WriteError(http.StatusTooManyRequests,
				"rate_limit_exceeded", "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code. It
// forwards Flush so streaming transports keep working behind it.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// routeLabel bounds the path label of the HTTP metrics to known routes.
func routeLabel(path string) string {
	switch path {
	case "/health", "/ready", "/metrics", PathMCP, PathSSE, PathMessage:
		return path
	default:
		return "other"
	}
}

// RequestLogger returns middleware that logs all HTTP requests with structured fields
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request completed",
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
				"remote_addr", getClientIP(r))
		})
	}
}

// PanicRecovery returns middleware that recovers from panics and logs them
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered in HTTP handler",
						"error", err,
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", getClientIP(r))

					NewResponseWriter(w, logger).WriteError(http.StatusInternalServerError,
						"internal_server_error", "An internal error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID returns middleware that adds a request ID to each request. An
// incoming X-Request-ID is kept, otherwise a UUID is generated.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records every request in mgr. A nil manager records
// nothing.
func MetricsMiddleware(mgr *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			mgr.RecordHTTPRequest(routeLabel(r.URL.Path), wrapped.statusCode, time.Since(start))
		})
	}
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return ""
}
