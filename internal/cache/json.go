package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetJSON decodes the value stored at key into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, error) {
	var out T
	raw, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, key, err)
	}
	return out, nil
}

// SetJSON encodes v and stores it for ttl.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, key, err)
	}
	return c.SetWithTTL(ctx, key, raw, ttl)
}

// GetOrLoad returns the cached T at key, calling load and caching its result
// on a miss. Cache read failures other than a miss fall through to load;
// load errors are returned and nothing is cached.
func GetOrLoad[T any](
	ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error),
) (T, error) {
	cached, err := GetJSON[T](ctx, c, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		logger().Debug().Err(err).Str("key", key).Msg("cache read failed, loading")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := SetJSON(ctx, c, key, v, ttl); err != nil {
		logger().Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}
