package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env or
// config.yaml leaks into Load.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "https://geocoding-api.open-meteo.com/v1", cfg.GeocodingBaseURL)
	assert.Equal(t, "https://archive-api.open-meteo.com/v1", cfg.ArchiveBaseURL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "UTC", cfg.ReferenceTimezone)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.ProxyURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("PROXY_URL", "http://192.168.2.244:1080")
	t.Setenv("REFERENCE_TIMEZONE", "Europe/Madrid")
	t.Setenv("SESSION_MAX_MESSAGES", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "http://192.168.2.244:1080", cfg.ProxyURL)
	assert.Equal(t, 12, cfg.SessionMaxMessages)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "weather.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai_model: gpt-4.1\nlog_format: text\nupstream_timeout: 7s\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", cfg.OpenAIModel)
	assert.Equal(t, 7*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "json", cfg.LogFormat, "environment wins over the file")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero timeout", func(c *Config) { c.UpstreamTimeout = 0 }},
		{"bad timezone", func(c *Config) { c.ReferenceTimezone = "Mars/Olympus" }},
		{"bad proxy", func(c *Config) { c.ProxyURL = "::not a url" }},
		{"bad base url", func(c *Config) { c.ForecastBaseURL = "api.open-meteo.com" }},
		{"zero history", func(c *Config) { c.SessionMaxMessages = 0 }},
		{"zero iterations", func(c *Config) { c.MaxToolIterations = 0 }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
