package service

import "context"

// Cache is the cache-aside backend used by services. The Redis cache in
// adapters/db/redis satisfies it.
type Cache interface {
	Key(parts ...any) string
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Key(...any) string {
	return ""
}

func (NopCache) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (NopCache) Set(context.Context, string, any) error {
	return nil
}

func (NopCache) Delete(context.Context, ...string) error {
	return nil
}
