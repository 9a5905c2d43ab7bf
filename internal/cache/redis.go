package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type redisCache struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
	life   lifecycle

	hits   atomic.Uint64
	misses atomic.Uint64
}

var (
	_ Cache         = (*redisCache)(nil)
	_ Pinger        = (*redisCache)(nil)
	_ StatsProvider = (*redisCache)(nil)
)

func redisOptions(cfg *RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.URL, DB: cfg.DB}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

func newRedisCache(ctx context.Context, cfg *RedisConfig) (*redisCache, error) {
	lg := logger().With().Str("backend", "redis").Logger()

	opts, err := redisOptions(cfg)
	if err != nil {
		lg.Error().Err(err).Msg("redis: invalid url")
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		lg.Warn().Err(err).Str("addr", opts.Addr).Msg("redis: initial ping failed")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultDMapName + ":"
	}

	lg.Info().Str("addr", opts.Addr).Int("db", opts.DB).Str("prefix", prefix).Msg("redis cache connected")
	return newRedisCacheFromClient(client, prefix, lg), nil
}

func newRedisCacheFromClient(client *redis.Client, prefix string, lg zerolog.Logger) *redisCache {
	return &redisCache{client: client, prefix: prefix, log: lg}
}

func (r *redisCache) key(k string) string {
	return r.prefix + k
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	release, err := r.life.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Debug().Err(err).Str("key", key).Msg("cache get error")
		return nil, err
	}
	r.hits.Add(1)
	return value, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.SetWithTTL(ctx, key, value, 0)
}

func (r *redisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	release, err := r.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	release, err := r.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	release, err := r.life.enter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisCache) Ping(ctx context.Context) error {
	release, err := r.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

func (r *redisCache) Close() error {
	return r.life.shut(func() error {
		r.log.Info().Msg("redis cache closed")
		return r.client.Close()
	})
}
