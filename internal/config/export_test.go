package config

// DetectFormat exports detectFormat for testing.
var DetectFormat = detectFormat

// MakeTestConfig returns a minimal valid Development configuration.
func MakeTestConfig() *Config {
	cfg := &Config{
		Environment:    EnvDevelopment,
		CatalogBaseURL: "http://catalog-api:5101",
	}
	cfg.ApplyDefaults()
	return cfg
}
