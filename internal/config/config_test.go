package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile drops a yaml config into a temp dir and points
// BOCHA_CONFIG at it for the duration of the test.
func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("BOCHA_CONFIG", path)
}

func TestLoad_FromFile(t *testing.T) {
	writeConfigFile(t, `
api_key: file-key
api_base_url: https://file.example.com
default_count: 20
default_freshness: oneWeek
`)
	t.Setenv("BOCHA_API_KEY", "")
	t.Setenv("BOCHA_API_BASE_URL", "")

	cfg := load()

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "https://file.example.com", cfg.APIBaseURL)
	assert.Equal(t, 20, cfg.DefaultCount)
	assert.Equal(t, "oneWeek", cfg.DefaultFreshness)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
api_key: file-key
api_base_url: https://file.example.com
default_count: 15
`)
	t.Setenv("BOCHA_API_KEY", "env-key")
	t.Setenv("BOCHA_API_BASE_URL", "https://env.example.com")

	cfg := load()

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	// Values without an environment override still come from the file.
	assert.Equal(t, 15, cfg.DefaultCount)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("BOCHA_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	t.Setenv("BOCHA_API_KEY", "")
	t.Setenv("BOCHA_API_BASE_URL", "")

	cfg := load()

	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, "", cfg.APIBaseURL)
	assert.Equal(t, 0, cfg.DefaultCount)
	assert.Equal(t, "", cfg.DefaultFreshness)
}

func TestLoad_MalformedFileFallsBackToEnv(t *testing.T) {
	writeConfigFile(t, "api_key: [not: valid: yaml\n\t")
	t.Setenv("BOCHA_API_KEY", "env-key")
	t.Setenv("BOCHA_API_BASE_URL", "")

	cfg := load()

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "", cfg.APIBaseURL)
}

func TestLoad_PartialFile(t *testing.T) {
	writeConfigFile(t, "api_key: only-a-key\n")
	t.Setenv("BOCHA_API_KEY", "")
	t.Setenv("BOCHA_API_BASE_URL", "")

	cfg := load()

	assert.Equal(t, "only-a-key", cfg.APIKey)
	assert.Equal(t, "", cfg.APIBaseURL)
	assert.Equal(t, 0, cfg.DefaultCount)
}

func TestLoad_Singleton(t *testing.T) {
	assert.Same(t, Load(), Load())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("BOCHA_CONFIG", "/etc/bocha/custom.yaml")
	assert.Equal(t, "/etc/bocha/custom.yaml", configPath())

	t.Setenv("BOCHA_CONFIG", "")
	path := configPath()
	assert.True(t, strings.HasSuffix(path, filepath.Join(".bocha-mcp", "config.yaml")), "got %s", path)
}
