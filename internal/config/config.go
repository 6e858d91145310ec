package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the console configuration. The API base URL is resolved once at
// startup: the KARAOKE_API_URL environment variable wins over the config
// file, which wins over the default.
type Config struct {
	APIURL             string `toml:"api_url"`
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"`
	PerPage            int    `toml:"per_page"`
	MetricsRefreshCron string `toml:"metrics_refresh_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:             "http://localhost:5001",
		RequestTimeoutSecs: 30,
		PerPage:            25,
		MetricsRefreshCron: "",
	}
}

// Load reads the config file at path (missing file is fine) and applies the
// environment override.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults apply.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if env := strings.TrimSpace(os.Getenv("KARAOKE_API_URL")); env != "" {
		cfg.APIURL = env
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL, got %q", c.APIURL)
	}
	if c.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSecs)
	}
	if c.PerPage < 0 {
		return fmt.Errorf("per_page must not be negative, got %d", c.PerPage)
	}
	return nil
}

// RequestTimeout returns the request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}
