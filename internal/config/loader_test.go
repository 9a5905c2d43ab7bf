package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/config"
)

const yamlConfig = `
environment: Development
catalog_base_url: "http://catalog-api:5101"
server:
  listen: "127.0.0.1:5106"
  https_port: 5443
connection_strings:
  catalog_connection: ""
cache:
  mode: disabled
app_settings:
  site_name: "eShop"
  catalog_page_size: 12
logging:
  level: debug
  format: json
`

const tomlConfig = `
environment = "Production"
catalog_base_url = "https://catalog.example.com"

[server]
listen = "0.0.0.0:8080"

[identity]
signing_key = "0123456789abcdef0123456789abcdef"

[cache]
mode = "disabled"
`

func TestLoadFromReaderYAML(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(yamlConfig), config.FormatYAML)
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://catalog-api:5101", cfg.CatalogBaseURL)
	assert.Equal(t, 5443, cfg.Server.HTTPSPort)
	assert.Equal(t, cache.ModeDisabled, cfg.Cache.Mode)
	assert.Equal(t, "eShop", cfg.AppSettings.SiteName)
	assert.Equal(t, 12, cfg.AppSettings.CatalogPageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromReaderTOML(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(tomlConfig), config.FormatTOML)
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
	assert.Equal(t, "https://catalog.example.com", cfg.CatalogBaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("catalog_base_url: http://x:1\n"), config.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, config.EnvProduction, cfg.Environment)
	assert.Equal(t, config.DefaultListen, cfg.Server.Listen)
	assert.Equal(t, config.DefaultCookieName, cfg.Identity.CookieName)
	assert.Equal(t, cache.ModeSingle, cfg.Cache.Mode)
	assert.Positive(t, cfg.Cache.Ristretto.MaxCost)
	assert.Equal(t, config.DefaultActuatorPath, cfg.Actuators.BasePath)
	assert.Equal(t, config.DefaultCatalogPageSize, cfg.AppSettings.CatalogPageSize)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CATALOG_HOST", "catalog.internal")

	cfg, err := config.LoadFromReader(
		strings.NewReader("catalog_base_url: http://${TEST_CATALOG_HOST}:80\n"), config.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.internal:80", cfg.CatalogBaseURL)
}

func TestLoadEnvironmentOverridesWin(t *testing.T) {
	t.Setenv("CatalogBaseUrl", "http://override:9000")
	t.Setenv("ConnectionStrings__CatalogConnection", "postgres://localhost/catalog")
	t.Setenv("STOREFRONT_ENVIRONMENT", "Staging")

	cfg, err := config.LoadFromReader(strings.NewReader(yamlConfig), config.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "http://override:9000", cfg.CatalogBaseURL)
	assert.Equal(t, "postgres://localhost/catalog", cfg.ConnectionStrings.CatalogConnection)
	assert.Equal(t, config.EnvStaging, cfg.Environment)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server: [unclosed"), config.FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML")
}

func TestLoadFileByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlConfig), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.FormatTOML, config.DetectFormat("a/b/storefront.TOML"))
	assert.Equal(t, config.FormatYAML, config.DetectFormat("storefront.yml"))
	assert.Equal(t, config.FormatYAML, config.DetectFormat("storefront"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STOREFRONT_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("STOREFRONT_DOTENV_PROBE") })

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("STOREFRONT_DOTENV_PROBE"))

	assert.NoError(t, config.LoadDotEnv(filepath.Join(dir, "absent.env")))
}
