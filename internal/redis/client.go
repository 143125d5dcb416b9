package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Client wraps the go-redis client with the operations the HTTP gateway
// needs: a fixed-window counter and health probes.
type Client struct {
	client *redis.Client
	logger *logrus.Logger

	// incrWindow increments a counter and arms its expiry in one round trip
	incrWindow *redis.Script
}

// Config holds Redis configuration
type Config struct {
	URL string
}

// New creates a new Redis client and verifies the connection.
func New(cfg *Config, logger *logrus.Logger) (*Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	c := &Client{
		client: client,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.loadScripts()

	// The URL may carry a password; only the address is logged
	logger.WithFields(logrus.Fields{"addr": opt.Addr, "db": opt.DB}).Info("Redis client initialized")

	return c, nil
}

func (c *Client) loadScripts() {
	// The expiry is only set by the increment that creates the key, so a
	// window never slides forward under load.
	c.incrWindow = redis.NewScript(`
		local count = redis.call('INCR', KEYS[1])
		if count == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return count
	`)

	c.logger.Debug("Loaded Redis Lua scripts")
}

// IncrWindow increments the counter at key and returns the new value. A
// counter created by this call expires after window.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.incrWindow.Run(ctx, c.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return n, nil
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Health reports whether Redis answers a ping, for the readiness probe.
func (c *Client) Health(ctx context.Context) map[string]interface{} {
	start := time.Now()
	err := c.Ping(ctx)
	h := map[string]interface{}{
		"healthy":    err == nil,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis health check failed")
		h["error"] = err.Error()
	}
	return h
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.client.Close()
}
