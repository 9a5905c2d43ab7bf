package config

import (
	"net"
	"net/url"
	"strings"
)

const minSigningKeyLen = 32

var validLogLevels = map[string]bool{
	"":         true, // Empty defaults to info
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true,
	"pretty":  true,
}

var validAuthModes = map[string]bool{
	"":                        true,
	AuthModeNone:              true,
	AuthModeForward:           true,
	AuthModeClientCredentials: true,
	AuthModeSigV4:             true,
}

var validExposure = map[string]bool{
	"health":     true,
	"info":       true,
	"prometheus": true,
}

// Validate checks the configuration for errors.
// Returns a ValidationError containing all errors found, or nil if valid.
// A bad CatalogBaseUrl is reported with ErrCatalogBaseURL so callers can treat it as fatal.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateCatalogBaseURL(c.CatalogBaseURL, errs)
	validateServer(c, errs)
	validateIdentity(c, errs)
	validateHTTPClient(c, errs)
	validateActuators(c, errs)
	validateLogging(c, errs)

	if c.Cache.Mode != "" {
		if err := c.Cache.Validate(); err != nil {
			errs.Add(err.Error())
		}
	}
	if err := c.Discovery.Validate(); err != nil {
		errs.Add(err.Error())
	}
	if c.AppSettings.CatalogPageSize < 0 {
		errs.Add("app_settings.catalog_page_size must be >= 0")
	}

	return errs.ToError()
}

func validateCatalogBaseURL(raw string, errs *ValidationError) {
	if strings.TrimSpace(raw) == "" {
		errs.AddCause(ErrCatalogBaseURL, "catalog_base_url (CatalogBaseUrl) is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs.AddCause(ErrCatalogBaseURL,
			"catalog_base_url must be an absolute http(s) URL (got "+quote(raw)+")")
	}
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else {
		validateListenAddress(c.Server.Listen, errs)
	}
	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
	if c.Server.HTTPSPort < 0 || c.Server.HTTPSPort > 65535 {
		errs.Addf("server.https_port out of range (got %d)", c.Server.HTTPSPort)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs.Add("server.tls_cert_file and server.tls_key_file must be set together")
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}
	if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateIdentity(c *Config, errs *ValidationError) {
	key := c.Identity.SigningKey
	if key == "" && !c.IsDevelopment() {
		errs.Add("identity.signing_key is required outside Development")
		return
	}
	if key != "" && len(key) < minSigningKeyLen {
		errs.Addf("identity.signing_key must be at least %d bytes", minSigningKeyLen)
	}
}

func validateHTTPClient(c *Config, errs *ValidationError) {
	if c.HTTPClient.HandlerLifetimeMS < 0 {
		errs.Add("http_client.handler_lifetime_ms must be >= 0")
	}
	auth := c.HTTPClient.Auth
	if !validAuthModes[auth.Mode] {
		errs.Addf("http_client.auth.mode is invalid (got %q, valid: none, forward, client_credentials, sigv4)",
			auth.Mode)
		return
	}
	switch auth.Mode {
	case AuthModeClientCredentials:
		if auth.TokenURL == "" || auth.ClientID == "" {
			errs.Add("http_client.auth.token_url and client_id are required for client_credentials")
		}
	case AuthModeSigV4:
		if auth.AWSRegion == "" {
			errs.Add("http_client.auth.aws_region is required for sigv4")
		}
	}
}

func validateActuators(c *Config, errs *ValidationError) {
	if !strings.HasPrefix(c.Actuators.BasePath, "/") {
		errs.Addf("actuators.base_path must start with / (got %q)", c.Actuators.BasePath)
	}
	for _, name := range c.Actuators.Exposure {
		if !validExposure[name] {
			errs.Addf("actuators.exposure has unknown endpoint %q", name)
		}
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}
}

func quote(s string) string {
	return "\"" + s + "\""
}
