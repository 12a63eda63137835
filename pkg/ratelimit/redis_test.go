package ratelimit

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 20 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCounter_KeyLayout(t *testing.T) {
	c := NewRedisCounter(nil, "rl:auth", nil)
	window := time.Unix(1700000000, 0)
	assert.Equal(t, "rl:auth:10.0.0.1:1700000000", c.key("10.0.0.1", window))
}

func TestRedisCounter_FallsBackToLocal(t *testing.T) {
	var logs bytes.Buffer
	c := NewRedisCounter(unreachableClient(t), "rl:auth", slog.New(slog.NewJSONHandler(&logs, nil)))
	c.Config(5, time.Minute)

	now := time.Now().UTC().Truncate(time.Minute)
	require.NoError(t, c.Increment("10.0.0.1", now))
	require.NoError(t, c.IncrementBy("10.0.0.1", now, 2))

	curr, prev, err := c.Get("10.0.0.1", now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, curr)
	assert.Equal(t, 0, prev)
	assert.True(t, c.degraded.Load())
	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("falling back")), "transition logged once")
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 7, toInt("7"))
	assert.Equal(t, 0, toInt(nil))
	assert.Equal(t, 0, toInt("x"))
}
