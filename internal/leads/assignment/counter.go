package assignment

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const defaultCounterKey = "leads:assignment:rr"

// Counter hands out the round-robin position for the agent pool.
type Counter interface {
	Next(ctx context.Context) (uint64, error)
}

// MemoryCounter is process-local and resets on restart.
type MemoryCounter struct {
	n atomic.Uint64
}

// NewMemoryCounter creates a counter starting at zero.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

// Next returns the current position and advances it.
func (c *MemoryCounter) Next(context.Context) (uint64, error) {
	return c.n.Add(1) - 1, nil
}

// RedisCounter shares the rotation across instances using INCR.
type RedisCounter struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCounter creates a counter stored under key. An empty key uses the default.
func NewRedisCounter(client redis.UniversalClient, key string) *RedisCounter {
	if key == "" {
		key = defaultCounterKey
	}
	return &RedisCounter{client: client, key: key}
}

// Next increments the shared counter and returns the previous value.
func (c *RedisCounter) Next(ctx context.Context) (uint64, error) {
	v, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, err
	}
	return uint64(v - 1), nil
}
