// Package config supplies the static client configuration: where the remote
// engine lives, where frames are written, and how the client logs. The
// protocol core takes these as plain values; nothing in it reads the
// environment or disk.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:8000"
	DefaultLogLevel  = "info"
)

// Config is the complete lookout configuration.
type Config struct {
	// ServerURL is the base URL of the remote automation engine. The one-shot
	// submission call posts to <ServerURL>/run-task; the streaming channel
	// dials the ws(s) equivalent of <ServerURL>/ws.
	ServerURL string `yaml:"server_url"`

	// ScreenshotDir receives the most recent frame as latest.<ext>.
	ScreenshotDir string `yaml:"screenshot_dir"`

	// DefaultTask pre-fills the task text submitted when none is given.
	DefaultTask string `yaml:"default_task"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:     DefaultServerURL,
		ScreenshotDir: defaultScreenshotDir(),
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads configuration from the given yaml file, layered over defaults.
// A missing file (or empty path) yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.ServerURL)
	if raw == "" {
		return fmt.Errorf("server_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server_url is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("server_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server_url is missing a host")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func defaultScreenshotDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lookout", "frames")
	}
	return filepath.Join(cache, "lookout", "frames")
}
