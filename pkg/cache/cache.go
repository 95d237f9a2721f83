package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is a byte-oriented key/value store with per-entry expiry.
// Callers own serialization.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes keys matching a glob; only a trailing '*' is
	// guaranteed to be portable across backends.
	DeleteByPattern(ctx context.Context, pattern string) error
	Close() error
}
