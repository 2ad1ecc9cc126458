package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCounterStore shares the daily quota counter between processes through
// Redis. Keys expire after two days so stale counters clean themselves up.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = "quota:"
	}
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCounterStore) Incr(ctx context.Context, day string) (int, error) {
	key := s.key(day)

	pipe := s.client.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour) // outlives the day it counts

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment quota counter: %w", err)
	}

	return int(incrCmd.Val()), nil
}

func (s *RedisCounterStore) Get(ctx context.Context, day string) (int, error) {
	count, err := s.client.Get(ctx, s.key(day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}
	return count, nil
}

func (s *RedisCounterStore) Reset(ctx context.Context, day string) error {
	if err := s.client.Del(ctx, s.key(day)).Err(); err != nil {
		return fmt.Errorf("failed to reset quota counter: %w", err)
	}
	return nil
}

func (s *RedisCounterStore) key(day string) string {
	return s.keyPrefix + day
}

var _ CounterStore = (*RedisCounterStore)(nil)
