package discovery

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

// Mode selects the registry backend.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeStatic   Mode = "static"
	ModeGossip   Mode = "gossip"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultServiceID   = "storefront"
	DefaultRefreshSpec = "@every 30s"
	DefaultStrategy    = StrategyRoundRobin
)

// InstanceConfig is one statically configured instance.
type InstanceConfig struct {
	URL      string `yaml:"url" toml:"url"`
	Weight   int    `yaml:"weight" toml:"weight"`
	Priority int    `yaml:"priority" toml:"priority"`
}

// GossipConfig configures the memberlist node.
type GossipConfig struct {
	NodeName string   `yaml:"node_name" toml:"node_name"`
	BindAddr string   `yaml:"bind_addr" toml:"bind_addr"`
	Join     []string `yaml:"join" toml:"join"`
}

// Config is the `discovery` configuration section.
type Config struct {
	Mode        Mode                        `yaml:"mode" toml:"mode"`
	ServiceID   string                      `yaml:"service_id" toml:"service_id"`
	InstanceURL string                      `yaml:"instance_url" toml:"instance_url"`
	Strategy    string                      `yaml:"strategy" toml:"strategy"`
	RefreshSpec string                      `yaml:"refresh" toml:"refresh"`
	Services    map[string][]InstanceConfig `yaml:"services" toml:"services"`
	Gossip      GossipConfig                `yaml:"gossip" toml:"gossip"`
}

// ApplyDefaults picks static mode when services are listed and disabled otherwise.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDisabled
		if len(c.Services) > 0 {
			c.Mode = ModeStatic
		}
	}
	if c.ServiceID == "" {
		c.ServiceID = DefaultServiceID
	}
	if c.Strategy == "" {
		c.Strategy = DefaultStrategy
	}
	if c.RefreshSpec == "" {
		c.RefreshSpec = DefaultRefreshSpec
	}
}

var strategies = []string{StrategyRoundRobin, StrategyWeightedRoundRobin, StrategyRandom, StrategyFailover}

// Validate expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeDisabled:
		return nil
	case ModeStatic:
		for id, instances := range c.Services {
			if len(instances) == 0 {
				errs = append(errs, fmt.Errorf("discovery: service %q has no instances", id))
			}
			for _, inst := range instances {
				if err := checkInstanceURL(inst.URL); err != nil {
					errs = append(errs, fmt.Errorf("discovery: service %q: %w", id, err))
				}
			}
		}
	case ModeGossip:
		if c.Gossip.BindAddr == "" {
			errs = append(errs, errors.New("discovery: gossip.bind_addr is required"))
		}
		if c.InstanceURL != "" {
			if err := checkInstanceURL(c.InstanceURL); err != nil {
				errs = append(errs, fmt.Errorf("discovery: instance_url: %w", err))
			}
		}
	default:
		return fmt.Errorf("discovery: unknown mode %q", c.Mode)
	}

	if !lo.Contains(strategies, c.Strategy) {
		errs = append(errs, fmt.Errorf("discovery: unknown strategy %q", c.Strategy))
	}
	if _, err := cron.ParseStandard(c.RefreshSpec); err != nil {
		errs = append(errs, fmt.Errorf("discovery: refresh %q: %w", c.RefreshSpec, err))
	}
	return errors.Join(errs...)
}

func checkInstanceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("instance url %q must be absolute http(s)", raw)
	}
	return nil
}
