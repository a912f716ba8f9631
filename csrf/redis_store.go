package csrf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "storefront:csrf:"

// RedisStore keeps tokens in Redis so that several instances behind a load
// balancer accept each other's tokens. Keys carry the token TTL, so Redis
// itself performs the expiry sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

func (s *RedisStore) Put(ctx context.Context, token string, rec Record) error {
	ttl := rec.TTL()
	if ttl <= 0 || rec.Used {
		// Nothing to keep: it could never validate.
		return nil
	}
	value := strconv.FormatInt(rec.ExpiresAt.UnixNano(), 10)
	if err := s.client.Set(ctx, s.key(token), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis csrf: put failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, token string) (Record, bool, error) {
	value, err := s.client.GetDel(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis csrf: take failed: %w", err)
	}
	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("redis csrf: corrupt record for token: %w", err)
	}
	return Record{ExpiresAt: time.Unix(0, nanos)}, true, nil
}

// DeleteExpired is a no-op; keys expire on their own.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
