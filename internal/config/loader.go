package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the config file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// envOverrides are process environment variables that take precedence over the file.
// The names follow the host conventions used by container deployments.
type envOverrides struct {
	Environment        string `env:"STOREFRONT_ENVIRONMENT"`
	Listen             string `env:"STOREFRONT_LISTEN"`
	CatalogBaseURL     string `env:"CatalogBaseUrl"`
	CatalogConnection  string `env:"ConnectionStrings__CatalogConnection"`
	IdentityConnection string `env:"ConnectionStrings__IdentityConnection"`
	SigningKey         string `env:"STOREFRONT_SIGNING_KEY"`
}

// detectFormat picks the parser from the file extension. Unknown extensions are YAML.
func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Load reads and parses a configuration file from the given path.
// Environment variables in the format ${VAR_NAME} are expanded before parsing,
// environment overrides are applied, then defaults.
func Load(path string) (cfg *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	return LoadFromReader(file, detectFormat(path))
}

// LoadFromReader reads and parses configuration in the given format.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(content)))

	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Environment, env.Environment)
	override(&cfg.Server.Listen, env.Listen)
	override(&cfg.CatalogBaseURL, env.CatalogBaseURL)
	override(&cfg.ConnectionStrings.CatalogConnection, env.CatalogConnection)
	override(&cfg.ConnectionStrings.IdentityConnection, env.IdentityConnection)
	override(&cfg.Identity.SigningKey, env.SigningKey)
	return nil
}

// LoadDotEnv loads a .env file into the process environment when it exists.
// Variables already set are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FindConfigFile searches the working directory then ~/.config/storefront for
// storefront.yaml or storefront.toml. Returns the YAML path in cwd when nothing exists.
func FindConfigFile() string {
	candidates := []string{"storefront.yaml", "storefront.toml"}
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		for _, name := range candidates {
			p := filepath.Join(home, ".config", "storefront", name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return candidates[0]
}
