package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marigold-labs/lookout/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.ServerURL != config.DefaultServerURL {
		t.Fatalf("unexpected default server url: %s", cfg.ServerURL)
	}
	if cfg.ScreenshotDir == "" {
		t.Fatal("default screenshot dir should be populated")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != config.DefaultServerURL {
		t.Fatalf("expected defaults, got server url %s", cfg.ServerURL)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	raw := `
server_url: https://agent.example.com:8443
default_task: "check the weather in Lisbon"
log_level: debug
`
	path := filepath.Join(dir, "lookout.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "https://agent.example.com:8443" {
		t.Fatalf("server url not overridden: %s", cfg.ServerURL)
	}
	if cfg.DefaultTask != "check the weather in Lisbon" {
		t.Fatalf("default task not overridden: %s", cfg.DefaultTask)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level not overridden: %s", cfg.LogLevel)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ScreenshotDir == "" {
		t.Fatal("screenshot dir lost its default")
	}
}

func TestLoadRejectsBadServerURL(t *testing.T) {
	cases := map[string]string{
		"empty":     `server_url: ""`,
		"scheme":    `server_url: "ftp://agent.example.com"`,
		"no host":   `server_url: "http://"`,
		"log level": "server_url: \"http://localhost:8000\"\nlog_level: loud",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lookout.yaml")
			if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
