package cache

import (
	"context"
	"time"
)

// Cache is a TTL-bounded byte cache for rendered read-endpoint responses.
// The memory backend is single-process: two instances may serve answers of
// differing staleness within the TTL. The Redis backend shares entries but
// makes no coherence promise beyond the TTL either.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
