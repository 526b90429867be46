package queue

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Config configures a Redis-backed queue.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisQueue is a Redis list used as a FIFO queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue backed by one Redis list.
func NewRedisQueue(cfg Config) (*RedisQueue, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("queue key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisQueue{client: client, key: cfg.Key}, nil
}

// Push appends one entry at the tail.
func (q *RedisQueue) Push(ctx context.Context, payload string) error {
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.key, err)
	}
	return nil
}

// BlockingPop waits indefinitely for the head entry.
func (q *RedisQueue) BlockingPop(ctx context.Context) (string, error) {
	res, err := q.client.BLPop(ctx, 0, q.key).Result()
	if err != nil {
		return "", fmt.Errorf("blocking pop from %s: %w", q.key, err)
	}
	if len(res) < 2 {
		return "", fmt.Errorf("unexpected blpop reply from %s: %v", q.key, res)
	}
	return res[1], nil
}

// Drain snapshots the list head-first and trims exactly the snapshotted
// count, so a concurrent push is never lost.
func (q *RedisQueue) Drain(ctx context.Context) ([]string, error) {
	entries, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", q.key, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if err := q.client.LTrim(ctx, q.key, int64(len(entries)), -1).Err(); err != nil {
		return nil, fmt.Errorf("trim %s: %w", q.key, err)
	}
	return entries, nil
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
