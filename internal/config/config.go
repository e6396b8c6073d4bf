package config

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the server wide settings: provider credentials and the
// defaults search tools fall back to when a request leaves them unset.
type Config struct {
	APIKey           string `yaml:"api_key"`
	APIBaseURL       string `yaml:"api_base_url"`
	DefaultCount     int    `yaml:"default_count"`
	DefaultFreshness string `yaml:"default_freshness"`
}

var (
	global *Config
	once   sync.Once
)

// Load returns the singleton configuration. Settings come from the yaml
// file at BOCHA_CONFIG (default ~/.bocha-mcp/config.yaml); the
// BOCHA_API_KEY and BOCHA_API_BASE_URL environment variables take
// precedence over the file. A missing or unreadable file just means
// defaults.
func Load() *Config {
	once.Do(func() {
		global = load()
	})
	return global
}

func load() *Config {
	cfg := &Config{}

	if data, err := os.ReadFile(configPath()); err == nil {
		// Ignore parse errors and fall back to env/defaults
		_ = yaml.Unmarshal(data, cfg)
	}

	if v := os.Getenv("BOCHA_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("BOCHA_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}

	return cfg
}

// APIKey returns the effective Bocha API key, empty when unconfigured.
func APIKey() string {
	return Load().APIKey
}

// BaseURL returns the configured API base URL, empty meaning the client
// default.
func BaseURL() string {
	return Load().APIBaseURL
}

// configPath returns the yaml config location.
func configPath() string {
	if custom := os.Getenv("BOCHA_CONFIG"); custom != "" {
		return custom
	}

	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".bocha-mcp", "config.yaml")
}
