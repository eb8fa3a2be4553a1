package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the current token per user in Redis, one key per user.
// SET overwrites in place, so the single-active-session rule needs no extra
// bookkeeping, and the TTL matches the token lifetime.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:user:%d", userID)
}

func (s *RedisStore) SetCurrent(ctx context.Context, userID int64, token string) error {
	return s.rdb.Set(ctx, sessionKey(userID), token, s.ttl).Err()
}

func (s *RedisStore) Current(ctx context.Context, userID int64) (string, error) {
	val, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
