package cache

import (
	"errors"
	"fmt"
	"time"
)

// Mode represents the cache operating mode.
type Mode string

const (
	// ModeSingle uses local Ristretto cache (default).
	ModeSingle Mode = "single"

	// ModeHA uses distributed Olric cache.
	ModeHA Mode = "ha"

	// ModeRedis uses a Redis server shared by every storefront instance.
	ModeRedis Mode = "redis"

	// ModeDisabled stores nothing.
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration.
type Config struct {
	Mode      Mode            `yaml:"mode" toml:"mode"`
	Olric     OlricConfig     `yaml:"olric" toml:"olric"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// RistrettoConfig configures the Ristretto local cache.
type RistrettoConfig struct {
	// NumCounters should be about 10x the expected number of items.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the byte budget of cached values.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// OlricConfig configures the Olric distributed cache.
type OlricConfig struct {
	DMapName    string   `yaml:"dmap_name" toml:"dmap_name"`
	BindAddr    string   `yaml:"bind_addr" toml:"bind_addr"`
	Addresses   []string `yaml:"addresses" toml:"addresses"`
	Peers       []string `yaml:"peers" toml:"peers"`
	Embedded    bool     `yaml:"embedded" toml:"embedded"`
	StartupWait int      `yaml:"startup_wait_ms" toml:"startup_wait_ms"`
}

// RedisConfig configures the Redis backend. URL accepts redis:// and rediss://
// forms; a bare host:port is used as the address.
type RedisConfig struct {
	URL       string `yaml:"url" toml:"url"`
	Password  string `yaml:"password" toml:"password"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
	DB        int    `yaml:"db" toml:"db"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("cache: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("cache: ristretto.num_counters must be positive")
		}
	case ModeHA:
		if !c.Olric.Embedded && len(c.Olric.Addresses) == 0 {
			return errors.New("cache: olric.addresses required when not embedded")
		}
		if c.Olric.Embedded && c.Olric.BindAddr == "" {
			return errors.New("cache: olric.bind_addr required when embedded")
		}
	case ModeRedis:
		if c.Redis.URL == "" {
			return errors.New("cache: redis.url required in redis mode")
		}
		if c.Redis.DB < 0 {
			return errors.New("cache: redis.db must be >= 0")
		}
	case ModeDisabled:
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultRistrettoConfig sizes the local cache for roughly 100K items in 100 MB.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1_000_000,
		MaxCost:     100 << 20,
		BufferItems: 64,
	}
}

// DefaultDMapName names the Olric map and the Redis key prefix when unset.
const DefaultDMapName = "storefront"

func (o *OlricConfig) startupWait() time.Duration {
	if o.StartupWait <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.StartupWait) * time.Millisecond
}
