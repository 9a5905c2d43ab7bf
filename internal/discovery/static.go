package discovery

import (
	"context"

	"github.com/rs/zerolog"
)

type staticClient struct {
	cfg  *Config
	log  zerolog.Logger
	snap snapshot
}

func newStaticClient(cfg *Config, log zerolog.Logger) *staticClient {
	c := &staticClient{cfg: cfg, log: log}
	c.load()
	return c
}

func (c *staticClient) load() {
	var all []Instance
	for id, list := range c.cfg.Services {
		for _, ic := range list {
			all = append(all, Instance{ServiceID: id, URL: ic.URL, Weight: ic.Weight, Priority: ic.Priority})
		}
	}
	c.snap.store(all)
	c.log.Debug().Int("instances", len(all)).Msg("static registry loaded")
}

func (c *staticClient) Mode() Mode { return ModeStatic }

func (c *staticClient) Instances(serviceID string) ([]Instance, error) {
	return c.snap.instances(serviceID)
}

func (c *staticClient) Services() []string { return c.snap.services() }

func (c *staticClient) All() []Instance { return c.snap.all() }

func (c *staticClient) Register(context.Context) error { return nil }

func (c *staticClient) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.load()
	return nil
}

func (c *staticClient) Shutdown() error { return nil }
