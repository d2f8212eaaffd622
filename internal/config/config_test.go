package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresHost(t *testing.T) {
	t.Setenv("SIGNOZ_HOST", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signoz host")
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("SIGNOZ_HOST", "https://signoz.example.com")
	t.Setenv("SIGNOZ_API_KEY", "k123")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_SERVER_PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://signoz.example.com", cfg.Signoz.Host)
	assert.Equal(t, "k123", cfg.Signoz.APIKey)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signoz:
  host: https://from-file.example.com
  ssl_verify: "false"
server:
  transport: stdio
log:
  level: debug
`), 0o644))

	t.Setenv("SIGNOZ_HOST", "https://from-env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", cfg.Signoz.Host)
	assert.False(t, cfg.Signoz.TLSVerify())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("SIGNOZ_HOST", "https://signoz.example.com")
	t.Setenv("MCP_TRANSPORT", "websocket")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")
}

func TestSignozConfigDefaults(t *testing.T) {
	c := SignozConfig{}
	assert.True(t, c.TLSVerify(), "verification is on unless explicitly disabled")
	assert.Equal(t, 30*time.Second, c.Timeout())

	c = SignozConfig{SSLVerify: "False", TimeoutMS: 5000}
	assert.False(t, c.TLSVerify())
	assert.Equal(t, 5*time.Second, c.Timeout())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SIGNOZ_HOST", "https://signoz.example.com")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
