package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "contact:ratelimit:"

// RedisStore shares entries between instances. Each entry is a hash that
// Redis expires at the end of its window.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore wraps a go-redis client
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: defaultKeyPrefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get returns the entry for key
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	values, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(values) == 0 {
		return Entry{}, false, nil
	}
	return decodeEntry(values)
}

// Set stores the entry and lets Redis drop it once the window is over
func (s *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, encodeEntry(entry))
		pipe.PExpireAt(ctx, k, entry.ResetAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set entry: %w", err)
	}
	return nil
}

func encodeEntry(e Entry) map[string]any {
	return map[string]any{
		"count":    e.Count,
		"reset_ms": e.ResetAt.UnixMilli(),
	}
}

func decodeEntry(values map[string]string) (Entry, bool, error) {
	count, err := strconv.Atoi(values["count"])
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid count %q: %w", values["count"], err)
	}
	resetMs, err := strconv.ParseInt(values["reset_ms"], 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid reset_ms %q: %w", values["reset_ms"], err)
	}
	return Entry{Count: count, ResetAt: time.UnixMilli(resetMs)}, true, nil
}
