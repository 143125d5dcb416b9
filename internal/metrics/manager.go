package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/config"
)

const namespace = "purple_mcp"

// Manager owns the process metrics and their registry. A nil *Manager is
// valid and records nothing, so callers never check whether metrics are
// enabled.
type Manager struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
}

// NewManager creates a manager with its own registry. It returns nil when
// metrics are disabled.
func NewManager(enabled bool, logger *slog.Logger) *Manager {
	if !enabled {
		logger.Info("Metrics disabled")
		return nil
	}

	m := &Manager{
		registry: prometheus.NewRegistry(),
		logger:   logger,

		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total MCP tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),

		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "MCP tool call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tool"}),

		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total console API calls by API and outcome",
		}, []string{"api", "outcome"}),

		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Console API call duration in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by path and status",
		}, []string{"path", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),

		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"backend"}),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information, always 1",
	}, []string{"version"})
	buildInfo.WithLabelValues(config.Version).Set(1)

	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		m.httpRequests,
		m.httpDuration,
		m.rateLimited,
		buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger.Info("Prometheus metrics enabled")
	return m
}

// RecordToolCall counts one tool invocation. outcome is "success" or
// "error".
func (m *Manager) RecordToolCall(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveUpstream has the signature of the API clients' observer hook.
func (m *Manager) ObserveUpstream(api, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(api, outcome).Inc()
	m.upstreamDuration.WithLabelValues(api).Observe(elapsed.Seconds())
}

// RecordHTTPRequest counts one served request. Callers pass the route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Manager) RecordHTTPRequest(path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// RecordRateLimited counts a rejected request.
func (m *Manager) RecordRateLimited(backend string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(backend).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          slog.NewLogLogger(m.logger.Handler(), slog.LevelError),
	})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
