package redis

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := New(&Config{URL: "redis://" + mr.Addr()}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNew(t *testing.T) {
	t.Run("connects successfully", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("invalid URL rejected", func(t *testing.T) {
		client, err := New(&Config{URL: "invalid://url"}, testLogger())
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "invalid Redis URL")
	})

	t.Run("connection failure detected", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		client, err := New(&Config{URL: "redis://" + addr}, testLogger())
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "failed to connect")
	})
}

func TestIncrWindow(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := client.IncrWindow(ctx, "ratelimit:a:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	assert.Equal(t, time.Minute, mr.TTL("ratelimit:a:1"))

	// Later increments keep the expiry set by the first one
	mr.FastForward(30 * time.Second)
	_, err = client.IncrWindow(ctx, "ratelimit:a:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:a:1"))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("ratelimit:a:1"))

	n, err := client.IncrWindow(ctx, "ratelimit:a:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIncrWindowConcurrent(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.IncrWindow(ctx, "shared", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := mr.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, "20", v)
}

func TestHealth(t *testing.T) {
	client, mr := setupTestRedis(t)

	h := client.Health(context.Background())
	assert.Equal(t, true, h["healthy"])
	assert.NotContains(t, h, "error")

	mr.Close()
	h = client.Health(context.Background())
	assert.Equal(t, false, h["healthy"])
	assert.Contains(t, h, "error")
}
