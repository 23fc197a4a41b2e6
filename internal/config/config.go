// Package config loads server configuration from an optional YAML file,
// a .env file and ACTIVECAMPAIGN_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "ACTIVECAMPAIGN_"

const (
	DefaultTimeout    = 30 * time.Second
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultHTTPAddr   = ":8080"
	DefaultConfigFile = "config.yaml"
)

type Config struct {
	API     APIConfig     `koanf:"api"`
	Log     LogConfig     `koanf:"log"`
	HTTP    HTTPConfig    `koanf:"http"`
	Tracing TracingConfig `koanf:"tracing"`
}

// APIConfig locates the ActiveCampaign account. URL is the account base
// (https://<account>.api-us1.com) and Key its API token.
type APIConfig struct {
	URL     string        `koanf:"url"`
	Key     string        `koanf:"key"`
	Timeout time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type TracingConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads path (a missing file is fine), then .env, then the environment.
// ACTIVECAMPAIGN_API_URL maps to api.url, ACTIVECAMPAIGN_LOG_LEVEL to
// log.level, and so on.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if !k.Exists("api.timeout") {
		k.Set("api.timeout", DefaultTimeout.String())
	}
	if !k.Exists("log.level") {
		k.Set("log.level", DefaultLogLevel)
	}
	if !k.Exists("log.format") {
		k.Set("log.format", DefaultLogFormat)
	}
	if !k.Exists("http.addr") {
		k.Set("http.addr", DefaultHTTPAddr)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return fmt.Errorf("%sAPI_URL is not set", EnvPrefix)
	}
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("%sAPI_KEY is not set", EnvPrefix)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}
