// Package cache stores computed analytics per user. Entries are namespaced
// by a per-user generation counter, so invalidating a user is one increment
// and stale entries simply age out.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when no live entry exists for a key
var ErrMiss = errors.New("cache miss")

// Store is the analytics result cache
type Store interface {
	Get(ctx context.Context, userID uint, kind, filterKey string) ([]byte, error)
	Set(ctx context.Context, userID uint, kind, filterKey string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uint) error
}

func generationKey(userID uint) string {
	return fmt.Sprintf("analytics:gen:%d", userID)
}

func entryKey(userID uint, generation int64, kind, filterKey string) string {
	sum := sha256.Sum256([]byte(filterKey))
	return fmt.Sprintf("analytics:%d:%d:%s:%s", userID, generation, kind, hex.EncodeToString(sum[:8]))
}
