package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/redis"
)

// Backend names, reported in metrics and logs.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the budget of a limiter
type Config struct {
	MaxRequests int           // Maximum requests allowed per window
	Window      time.Duration // Length of one window
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is the time left until the current window ends
	Reset time.Duration
}

// counter counts hits in fixed windows.
type counter interface {
	incr(ctx context.Context, key string, window time.Duration) (int64, error)
	name() string
}

// Limiter implements fixed-window rate limiting. Counters live in Redis when
// a client is given, so several gateway replicas share one budget, and in
// process memory otherwise.
type Limiter struct {
	counter counter
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewLimiter creates a rate limiter. redisClient may be nil.
func NewLimiter(redisClient *redis.Client, cfg Config, logger *slog.Logger) *Limiter {
	l := &Limiter{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	if redisClient != nil {
		l.counter = redisCounter{client: redisClient}
	} else {
		l.counter = newMemoryCounter(func() time.Time { return l.now() })
	}
	return l
}

// Backend reports where the counters live.
func (l *Limiter) Backend() string { return l.counter.name() }

// Allow counts one request for key and reports whether it fits the budget.
// When the counter store fails the request is allowed and the error returned.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	window := l.cfg.Window
	bucket := now.UnixNano() / int64(window)
	resetAt := time.Unix(0, (bucket+1)*int64(window))

	d := Decision{
		Allowed:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests,
		Reset:     resetAt.Sub(now),
	}

	bucketKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)
	count, err := l.counter.incr(ctx, bucketKey, window)
	if err != nil {
		l.logger.Warn("Rate limit check failed, allowing request",
			"backend", l.counter.name(),
			"error", err)
		return d, err
	}

	d.Allowed = count <= int64(l.cfg.MaxRequests)
	d.Remaining = max(l.cfg.MaxRequests-int(count), 0)

	if !d.Allowed {
		l.logger.Info("Rate limit exceeded", "key", key, "count", count)
	}

	return d, nil
}

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return r.client.IncrWindow(ctx, key, window)
}

func (redisCounter) name() string { return BackendRedis }

type memoryEntry struct {
	count   int64
	expires time.Time
}

// memoryCounter is the single-process counter store.
type memoryCounter struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func newMemoryCounter(now func() time.Time) *memoryCounter {
	return &memoryCounter{entries: make(map[string]*memoryEntry), now: now}
}

func (m *memoryCounter) incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= window {
		for k, e := range m.entries {
			if !now.Before(e.expires) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}

	e, ok := m.entries[key]
	if !ok || !now.Before(e.expires) {
		e = &memoryEntry{expires: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (*memoryCounter) name() string { return BackendMemory }
