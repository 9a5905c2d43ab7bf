// Package config provides configuration loading and parsing for the storefront.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/discovery"
	"github.com/omarluq/storefront/internal/health"
)

// Hosting environment names.
const (
	EnvDevelopment = "Development"
	EnvStaging     = "Staging"
	EnvProduction  = "Production"
)

// Log level names.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Outbound authorization modes for the catalog HTTP client.
const (
	AuthModeNone              = "none"
	AuthModeForward           = "forward"
	AuthModeClientCredentials = "client_credentials"
	AuthModeSigV4             = "sigv4"
)

// RuntimeConfig gives components the latest configuration after hot-reload.
type RuntimeConfig interface {
	Get() *Config
}

// Config is the root configuration document.
//
//nolint:govet // grouped by concern, not alignment
type Config struct {
	Environment       string            `yaml:"environment" toml:"environment"`
	CatalogBaseURL    string            `yaml:"catalog_base_url" toml:"catalog_base_url"`
	Server            ServerConfig      `yaml:"server" toml:"server"`
	Logging           LoggingConfig     `yaml:"logging" toml:"logging"`
	ConnectionStrings ConnectionStrings `yaml:"connection_strings" toml:"connection_strings"`
	Identity          IdentityConfig    `yaml:"identity" toml:"identity"`
	Cache             cache.Config      `yaml:"cache" toml:"cache"`
	HTTPClient        HTTPClientConfig  `yaml:"http_client" toml:"http_client"`
	Discovery         discovery.Config  `yaml:"discovery" toml:"discovery"`
	Health            health.Config     `yaml:"health" toml:"health"`
	Actuators         ActuatorConfig    `yaml:"actuators" toml:"actuators"`
	AppSettings       AppSettings       `yaml:"app_settings" toml:"app_settings"`
	Email             EmailConfig       `yaml:"email" toml:"email"`
}

// IsDevelopment reports whether the host runs in the Development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// ServerConfig defines listener settings.
type ServerConfig struct {
	Listen      string `yaml:"listen" toml:"listen"`
	TLSCertFile string `yaml:"tls_cert_file" toml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file" toml:"tls_key_file"`
	StaticDir   string `yaml:"static_dir" toml:"static_dir"`
	HTTPSPort   int    `yaml:"https_port" toml:"https_port"`
	HSTSMaxAge  int    `yaml:"hsts_max_age_days" toml:"hsts_max_age_days"`
	TimeoutMS   int    `yaml:"timeout_ms" toml:"timeout_ms"`
	EnableHTTP2 bool   `yaml:"enable_http2" toml:"enable_http2"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (s *ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// GetTimeoutOption returns the per-request write timeout when set.
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// HSTSDuration returns the Strict-Transport-Security max-age.
func (s *ServerConfig) HSTSDuration() time.Duration {
	days := s.HSTSMaxAge
	if days <= 0 {
		days = DefaultHSTSMaxAgeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ConnectionStrings names the backing stores. Empty means in-memory.
type ConnectionStrings struct {
	CatalogConnection  string `yaml:"catalog_connection" toml:"catalog_connection"`
	IdentityConnection string `yaml:"identity_connection" toml:"identity_connection"`
}

// IdentityConfig configures cookie authentication and the user store.
type IdentityConfig struct {
	CookieName       string `yaml:"cookie_name" toml:"cookie_name"`
	SigningKey       string `yaml:"signing_key" toml:"signing_key"`
	SignInPerMinute  int    `yaml:"signin_per_minute" toml:"signin_per_minute"`
	SeedDemoUser     bool   `yaml:"seed_demo_user" toml:"seed_demo_user"`
	DemoUserPassword string `yaml:"demo_user_password" toml:"demo_user_password"`
}

// HTTPClientConfig configures the named outbound HTTP clients.
type HTTPClientConfig struct {
	Auth              OutboundAuthConfig `yaml:"auth" toml:"auth"`
	HandlerLifetimeMS int                `yaml:"handler_lifetime_ms" toml:"handler_lifetime_ms"`
	TimeoutMS         int                `yaml:"timeout_ms" toml:"timeout_ms"`
}

// HandlerLifetime returns how long a pooled transport lives before rotation.
func (h *HTTPClientConfig) HandlerLifetime() time.Duration {
	if h.HandlerLifetimeMS <= 0 {
		return DefaultHandlerLifetime
	}
	return time.Duration(h.HandlerLifetimeMS) * time.Millisecond
}

// Timeout returns the overall client timeout.
func (h *HTTPClientConfig) Timeout() time.Duration {
	if h.TimeoutMS <= 0 {
		return DefaultClientTimeout
	}
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

// OutboundAuthConfig selects how calls to downstream services are authorized.
type OutboundAuthConfig struct {
	Mode               string   `yaml:"mode" toml:"mode"`
	TokenURL           string   `yaml:"token_url" toml:"token_url"`
	ClientID           string   `yaml:"client_id" toml:"client_id"`
	ClientSecret       string   `yaml:"client_secret" toml:"client_secret"`
	AWSRegion          string   `yaml:"aws_region" toml:"aws_region"`
	AWSService         string   `yaml:"aws_service" toml:"aws_service"`
	AWSAccessKeyID     string   `yaml:"aws_access_key_id" toml:"aws_access_key_id"`
	AWSSecretAccessKey string   `yaml:"aws_secret_access_key" toml:"aws_secret_access_key"`
	Scopes             []string `yaml:"scopes" toml:"scopes"`
}

// EffectiveMode returns the configured mode, defaulting to forward.
func (o *OutboundAuthConfig) EffectiveMode() string {
	if o.Mode == "" {
		return AuthModeForward
	}
	return o.Mode
}

// ActuatorConfig configures the management endpoints.
type ActuatorConfig struct {
	Enabled  *bool    `yaml:"enabled" toml:"enabled"`
	BasePath string   `yaml:"base_path" toml:"base_path"`
	Exposure []string `yaml:"exposure" toml:"exposure"`
}

// IsEnabled defaults to true when unset.
func (a *ActuatorConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// AppSettings are the hot-reloadable storefront options.
type AppSettings struct {
	SiteName             string `yaml:"site_name" toml:"site_name" json:"site_name"`
	CatalogPageSize      int    `yaml:"catalog_page_size" toml:"catalog_page_size" json:"catalog_page_size"`
	UseCustomizationData bool   `yaml:"use_customization_data" toml:"use_customization_data" json:"use_customization_data"`
}

// EmailConfig configures outgoing notifications.
type EmailConfig struct {
	From string `yaml:"from" toml:"from"`
	// PerRecipientPerMinute caps outgoing mail per address; 0 is unlimited.
	PerRecipientPerMinute int `yaml:"per_recipient_per_minute" toml:"per_recipient_per_minute"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
