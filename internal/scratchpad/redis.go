package scratchpad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces scratchpad keys in a shared Redis.
const DefaultRedisPrefix = "partnerz:scratchpad:"

// RedisStore keeps one client's values in Redis under prefix+deviceID. It
// lets several server instances share hints; the browser then only carries
// an opaque device id.
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	deviceID string
	ttl      time.Duration
}

// NewRedisStore binds a store to one device. An empty prefix uses
// DefaultRedisPrefix; a zero ttl means 30 minutes.
func NewRedisStore(client redis.Cmdable, prefix, deviceID string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, prefix: prefix, deviceID: deviceID, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + s.deviceID + ":" + k
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("scratchpad: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scratchpad: redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("scratchpad: redis del %s: %w", key, err)
	}
	return nil
}
