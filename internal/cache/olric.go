package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

const pingKey = "__storefront_ping__"

// olricCache runs either an embedded node (db != nil) or a cluster client.
type olricCache struct {
	db     *olric.Olric
	client olric.Client
	dmap   olric.DMap
	log    zerolog.Logger
	life   lifecycle
}

var (
	_ Cache  = (*olricCache)(nil)
	_ Pinger = (*olricCache)(nil)
)

func splitBindAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

func newOlricCache(ctx context.Context, cfg *OlricConfig) (*olricCache, error) {
	lg := logger().With().Str("backend", "olric").Logger()

	name := cfg.DMapName
	if name == "" {
		name = DefaultDMapName
	}

	if cfg.Embedded {
		return startEmbeddedOlric(ctx, cfg, name, lg)
	}
	return dialOlricCluster(ctx, cfg, name, lg)
}

func startEmbeddedOlric(ctx context.Context, cfg *OlricConfig, name string, lg zerolog.Logger) (*olricCache, error) {
	c := olricconfig.New("local")
	host, port := splitBindAddr(cfg.BindAddr)
	c.BindAddr = host
	if port > 0 {
		c.BindPort = port
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
	}
	c.LogOutput = io.Discard
	c.Logger = log.New(io.Discard, "", 0)

	ready := make(chan struct{})
	c.Started = func() { close(ready) }

	db, err := olric.New(c)
	if err != nil {
		lg.Error().Err(err).Msg("olric: failed to create embedded node")
		return nil, err
	}

	startErr := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			startErr <- err
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, cfg.startupWait())
	defer cancel()

	select {
	case <-ready:
	case err := <-startErr:
		lg.Error().Err(err).Msg("olric: embedded node failed to start")
		return nil, err
	case <-waitCtx.Done():
		lg.Warn().Dur("waited", cfg.startupWait()).Msg("olric: node not ready yet, continuing")
	}

	client := db.NewEmbeddedClient()
	dm, err := client.NewDMap(name)
	if err != nil {
		lg.Error().Err(err).Str("dmap", name).Msg("olric: failed to open dmap")
		if shutErr := db.Shutdown(context.Background()); shutErr != nil {
			lg.Error().Err(shutErr).Msg("olric: shutdown after dmap failure")
		}
		return nil, err
	}

	lg.Info().Str("bind_addr", host).Int("bind_port", port).Str("dmap", name).
		Int("peers", len(cfg.Peers)).Msg("olric embedded cache started")

	return &olricCache{db: db, client: client, dmap: dm, log: lg}, nil
}

func dialOlricCluster(ctx context.Context, cfg *OlricConfig, name string, lg zerolog.Logger) (*olricCache, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("cache: olric addresses required for client mode")
	}

	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		lg.Error().Err(err).Strs("addresses", cfg.Addresses).Msg("olric: failed to connect")
		return nil, err
	}

	dm, err := client.NewDMap(name)
	if err != nil {
		if closeErr := client.Close(ctx); closeErr != nil {
			lg.Error().Err(closeErr).Msg("olric: close after dmap failure")
		}
		return nil, err
	}

	lg.Info().Strs("addresses", cfg.Addresses).Str("dmap", name).Msg("olric cluster cache connected")
	return &olricCache{client: client, dmap: dm, log: lg}, nil
}

func (o *olricCache) Get(ctx context.Context, key string) ([]byte, error) {
	release, err := o.life.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := o.dmap.Get(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		o.log.Debug().Err(err).Str("key", key).Msg("cache get error")
		return nil, err
	}

	value, err := resp.Byte()
	if err != nil {
		return nil, err
	}
	return cloneBytes(value), nil
}

func (o *olricCache) Set(ctx context.Context, key string, value []byte) error {
	return o.SetWithTTL(ctx, key, value, 0)
}

func (o *olricCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	release, err := o.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	if ttl > 0 {
		err = o.dmap.Put(ctx, key, cloneBytes(value), olric.EX(ttl))
	} else {
		err = o.dmap.Put(ctx, key, cloneBytes(value))
	}
	if err != nil {
		o.log.Debug().Err(err).Str("key", key).Msg("cache set error")
	}
	return err
}

func (o *olricCache) Delete(ctx context.Context, key string) error {
	release, err := o.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = o.dmap.Delete(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (o *olricCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Ping round-trips a read against the cluster.
func (o *olricCache) Ping(ctx context.Context) error {
	release, err := o.life.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = o.dmap.Get(ctx, pingKey)
	if err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (o *olricCache) Close() error {
	return o.life.shut(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		if err := o.dmap.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if o.db != nil {
			if err := o.db.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		} else if err := o.client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		o.log.Info().Msg("olric cache closed")
		return errors.Join(errs...)
	})
}
