package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found in cache")

type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	DefaultTTL time.Duration
	RedisURL   string
}

func DefaultOptions() Options {
	return Options{DefaultTTL: time.Hour}
}
