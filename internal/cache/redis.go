package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps analytics results in Redis
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) generation(ctx context.Context, userID uint) (int64, error) {
	gen, err := s.rdb.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached bytes or ErrMiss
func (s *RedisStore) Get(ctx context.Context, userID uint, kind, filterKey string) ([]byte, error) {
	gen, err := s.generation(ctx, userID)
	if err != nil {
		return nil, err
	}
	val, err := s.rdb.Get(ctx, entryKey(userID, gen, kind, filterKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

// Set stores value under the user's current generation
func (s *RedisStore) Set(ctx context.Context, userID uint, kind, filterKey string, value []byte, ttl time.Duration) error {
	gen, err := s.generation(ctx, userID)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, entryKey(userID, gen, kind, filterKey), value, ttl).Err()
}

// Invalidate bumps the user's generation so earlier entries are unreachable
func (s *RedisStore) Invalidate(ctx context.Context, userID uint) error {
	return s.rdb.Incr(ctx, generationKey(userID)).Err()
}
