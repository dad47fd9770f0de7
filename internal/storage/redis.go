package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisScope stores a scope under a key prefix in Redis, so several machines
// can share one session.
type RedisScope struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Scope = (*RedisScope)(nil)

// NewRedisScope creates a scope whose keys live under prefix. A zero ttl keeps
// keys until they are deleted.
func NewRedisScope(client *redis.Client, prefix string, ttl time.Duration) *RedisScope {
	return &RedisScope{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisScope) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisScope) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisScope) Set(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.redisKey(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set keys in Redis: %w", err)
	}
	return nil
}

func (s *RedisScope) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = s.redisKey(k)
	}
	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys from Redis: %w", err)
	}
	return nil
}
