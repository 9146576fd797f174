// Package cache holds the small byte caches used in front of the store.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL byte cache. Get reports a miss with ok == false and a nil
// error; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
