package config

import (
	"time"

	"github.com/omarluq/storefront/internal/cache"
)

// Default values applied by ApplyDefaults.
const (
	DefaultListen          = "127.0.0.1:5106"
	DefaultHSTSMaxAgeDays  = 30
	DefaultCookieName      = ".storefront.auth"
	DefaultSignInPerMinute = 10
	DefaultCatalogPageSize = 10
	DefaultActuatorPath    = "/actuator"
	DefaultEmailFrom       = "storefront@localhost"
	DefaultSiteName        = "Storefront"
	DefaultDemoPassword    = "Pass@word1"

	DefaultHandlerLifetime = 5 * time.Minute
	DefaultClientTimeout   = 30 * time.Second
)

// DefaultExposure lists the actuator endpoints exposed when none are configured.
var DefaultExposure = []string{"health", "info", "prometheus"}

// ApplyDefaults fills zero values with their defaults. It is called by the loader
// after environment overrides so that explicit settings always win.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Identity.CookieName == "" {
		c.Identity.CookieName = DefaultCookieName
	}
	if c.Identity.SignInPerMinute <= 0 {
		c.Identity.SignInPerMinute = DefaultSignInPerMinute
	}
	if c.Identity.DemoUserPassword == "" {
		c.Identity.DemoUserPassword = DefaultDemoPassword
	}
	if c.Cache.Mode == "" {
		c.Cache.Mode = cache.ModeSingle
	}
	if c.Cache.Mode == cache.ModeSingle && c.Cache.Ristretto.MaxCost == 0 {
		c.Cache.Ristretto = cache.DefaultRistrettoConfig()
	}
	if c.Actuators.BasePath == "" {
		c.Actuators.BasePath = DefaultActuatorPath
	}
	if len(c.Actuators.Exposure) == 0 {
		c.Actuators.Exposure = append([]string(nil), DefaultExposure...)
	}
	if c.AppSettings.CatalogPageSize <= 0 {
		c.AppSettings.CatalogPageSize = DefaultCatalogPageSize
	}
	if c.AppSettings.SiteName == "" {
		c.AppSettings.SiteName = DefaultSiteName
	}
	if c.Email.From == "" {
		c.Email.From = DefaultEmailFrom
	}
	c.Discovery.ApplyDefaults()
}
