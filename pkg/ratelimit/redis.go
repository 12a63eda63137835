// Package ratelimit provides an httprate.LimitCounter backed by Redis so that
// every API replica shares the same sliding-window counters.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

const opTimeout = 100 * time.Millisecond

// RedisCounter stores per-window counters under "<prefix>:<key>:<window unix>".
// When Redis fails it degrades to an in-process counter instead of failing
// the request, and returns to Redis on the next successful call.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
	logger *slog.Logger

	window   time.Duration
	local    httprate.LimitCounter
	degraded atomic.Bool
}

var _ httprate.LimitCounter = (*RedisCounter)(nil)

// NewRedisCounter returns a counter using client. prefix namespaces the keys.
func NewRedisCounter(client redis.Cmdable, prefix string, logger *slog.Logger) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, logger: logger}
}

// Config is called by httprate with the limiter's parameters.
func (c *RedisCounter) Config(requestLimit int, windowLength time.Duration) {
	c.window = windowLength
	c.local = httprate.NewLocalLimitCounter(windowLength)
	c.local.Config(requestLimit, windowLength)
}

func (c *RedisCounter) key(key string, window time.Time) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, key, window.Unix())
}

// Increment adds one hit to key in currentWindow.
func (c *RedisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

// IncrementBy adds amount hits to key in currentWindow.
func (c *RedisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	k := c.key(key, currentWindow)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, k, int64(amount))
		// Two windows: the sliding estimate also reads the previous one.
		pipe.Expire(ctx, k, 2*c.window)
		return nil
	})
	if err != nil {
		c.fallback(err)
		return c.local.IncrementBy(key, currentWindow, amount)
	}
	c.restore()
	return nil
}

// Get returns the hit counts for the current and previous windows.
func (c *RedisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	vals, err := c.client.MGet(ctx, c.key(key, currentWindow), c.key(key, previousWindow)).Result()
	if err != nil {
		c.fallback(err)
		return c.local.Get(key, currentWindow, previousWindow)
	}
	c.restore()
	return toInt(vals[0]), toInt(vals[1]), nil
}

func (c *RedisCounter) fallback(err error) {
	if !c.degraded.Swap(true) && c.logger != nil {
		c.logger.Warn("rate limit counter falling back to local memory", slog.String("error", err.Error()))
	}
}

func (c *RedisCounter) restore() {
	if c.degraded.Swap(false) && c.logger != nil {
		c.logger.Info("rate limit counter using redis again")
	}
}

func toInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
