package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces console keys inside a shared Redis.
const DefaultRedisPrefix = "opsconsole:"

// RedisStorage keeps state in Redis.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage connects to the Redis instance described by url
// (redis:// or rediss://). The connection is established lazily.
func NewRedisStorage(url, prefix string) (*RedisStorage, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: redis.NewClient(opt), prefix: prefix}, nil
}

func (s *RedisStorage) key(k string) string { return s.prefix + k }

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set writes all values with one MSET.
func (s *RedisStorage) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.client.MSet(ctx, s.pairs(values)...).Err(); err != nil {
		return fmt.Errorf("mset: %w", err)
	}
	return nil
}

// Delete removes all keys with one DEL.
func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Replace runs DEL and MSET inside one MULTI/EXEC transaction.
func (s *RedisStorage) Replace(ctx context.Context, set map[string]string, del []string) error {
	switch {
	case len(set) == 0 && len(del) == 0:
		return nil
	case len(del) == 0:
		return s.Set(ctx, set)
	case len(set) == 0:
		return s.Delete(ctx, del...)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys(del)...)
		pipe.MSet(ctx, s.pairs(set)...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}

func (s *RedisStorage) keys(keys []string) []string {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return full
}

func (s *RedisStorage) pairs(values map[string]string) []any {
	pairs := make([]any, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, s.key(k), v)
	}
	return pairs
}

// Close releases the connection pool.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
