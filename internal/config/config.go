package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration parameters
type Config struct {
	OpenAIApiKey string `koanf:"openai_api_key"`
	OpenAIModel  string `koanf:"openai_model"`

	GeocodingBaseURL string        `koanf:"geocoding_base_url"`
	ForecastBaseURL  string        `koanf:"forecast_base_url"`
	ArchiveBaseURL   string        `koanf:"archive_base_url"`
	UpstreamTimeout  time.Duration `koanf:"upstream_timeout"`
	ProxyURL         string        `koanf:"proxy_url"`

	// ReferenceTimezone decides "today" when the geocoder gives no zone.
	ReferenceTimezone string `koanf:"reference_timezone"`

	RedisAddr          string        `koanf:"redis_addr"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
	SessionMaxMessages int           `koanf:"session_max_messages"`
	MaxContextTokens   int           `koanf:"max_context_tokens"`
	MaxToolIterations  int           `koanf:"max_tool_iterations"`

	HTTPAddr     string `koanf:"http_addr"`
	ServerAPIKey string `koanf:"server_api_key"`
	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
}

// Default returns the configuration used when nothing overrides a key
func Default() *Config {
	return &Config{
		OpenAIModel:        "gpt-4o",
		GeocodingBaseURL:   "https://geocoding-api.open-meteo.com/v1",
		ForecastBaseURL:    "https://api.open-meteo.com/v1",
		ArchiveBaseURL:     "https://archive-api.open-meteo.com/v1",
		UpstreamTimeout:    10 * time.Second,
		ReferenceTimezone:  "UTC",
		SessionTTL:         24 * time.Hour,
		SessionMaxMessages: 50,
		MaxContextTokens:   4000,
		MaxToolIterations:  5,
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// knownKeys limits the environment provider to the keys of Config.
var knownKeys = map[string]bool{
	"openai_api_key": true, "openai_model": true,
	"geocoding_base_url": true, "forecast_base_url": true, "archive_base_url": true,
	"upstream_timeout": true, "proxy_url": true, "reference_timezone": true,
	"redis_addr": true, "session_ttl": true, "session_max_messages": true,
	"max_context_tokens": true, "max_tool_iterations": true,
	"http_addr": true, "server_api_key": true, "log_level": true, "log_format": true,
}

// Load loads configuration from .env, an optional YAML file and the environment.
//
// Priority (highest first):
// 1. environment variables (OPENAI_API_KEY, UPSTREAM_TIMEOUT, ...)
// 2. YAML file at CONFIG_PATH, or ./config.yaml when present
// 3. Default()
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	k := koanf.New(".")

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(kfile.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(kenv.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(key)
		if !knownKeys[key] || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, strings.TrimSpace(value)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.OpenAIApiKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, the weather agent will be disabled")
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time
func (c *Config) Validate() error {
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionMaxMessages <= 0 {
		return errors.New("SESSION_MAX_MESSAGES must be positive")
	}
	if c.MaxContextTokens <= 0 {
		return errors.New("MAX_CONTEXT_TOKENS must be positive")
	}
	if c.MaxToolIterations <= 0 {
		return errors.New("MAX_TOOL_ITERATIONS must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid PROXY_URL %q", c.ProxyURL)
		}
	}
	for name, raw := range map[string]string{
		"GEOCODING_BASE_URL": c.GeocodingBaseURL,
		"FORECAST_BASE_URL":  c.ForecastBaseURL,
		"ARCHIVE_BASE_URL":   c.ArchiveBaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	return nil
}

// Location returns the reference time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REFERENCE_TIMEZONE %q: %w", c.ReferenceTimezone, err)
	}
	return loc, nil
}
