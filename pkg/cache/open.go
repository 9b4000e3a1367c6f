package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend  string // file, redis or none; empty means file
	Dir      string // FileCache directory
	RedisURL string // RedisCache server
}

// Open creates the cache named by opts.Backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("cache: file backend needs a directory")
		}
		return NewFileCache(opts.Dir)
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("cache: redis backend needs a url")
		}
		return NewRedisCache(ctx, opts.RedisURL)
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}
}
