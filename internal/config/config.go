// Package config loads the resolved configuration value object injected
// into the core at construction. Environment variables override the
// optional YAML file; the core never re-reads configuration mid-run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved configuration.
type Config struct {
	Signoz SignozConfig `yaml:"signoz"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// SignozConfig configures the downstream client.
type SignozConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	// SSLVerify is a string ("true"/"false") so existing deployment YAML
	// that quotes the value keeps working.
	SSLVerify string `yaml:"ssl_verify"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// TLSVerify reports whether certificate validation is on. Anything but an
// explicit "false" verifies.
func (c SignozConfig) TLSVerify() bool {
	return !strings.EqualFold(strings.TrimSpace(c.SSLVerify), "false")
}

// Timeout returns the bounded per-request timeout.
func (c SignozConfig) Timeout() time.Duration {
	if c.TimeoutMS > 0 {
		return time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return 30 * time.Second
}

// ServerConfig configures the transport surface.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`
}

// LogConfig configures logging output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the optional YAML file at path, applies environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: 8000, Transport: "stdio"},
		Log:    LogConfig{Level: "info"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if strings.TrimSpace(cfg.Signoz.Host) == "" {
		return nil, fmt.Errorf("signoz host is required: set signoz.host or SIGNOZ_HOST")
	}
	switch cfg.Server.Transport {
	case "stdio", "http":
	default:
		return nil, fmt.Errorf("unknown transport %q: expected stdio or http", cfg.Server.Transport)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Signoz.Host, "SIGNOZ_HOST")
	setString(&cfg.Signoz.APIKey, "SIGNOZ_API_KEY")
	setString(&cfg.Signoz.SSLVerify, "SIGNOZ_SSL_VERIFY")
	setInt(&cfg.Signoz.TimeoutMS, "SIGNOZ_TIMEOUT_MS")
	setInt(&cfg.Server.Port, "MCP_SERVER_PORT")
	setString(&cfg.Server.Transport, "MCP_TRANSPORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
