package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, 50*time.Millisecond, cfg.Mock.TokenDelay)
	assert.Equal(t, "test thinking", cfg.Mock.TestDirective)
	assert.Equal(t, time.Duration(0), cfg.GenAI.Timeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_NestedEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BILLCHAT_SERVER_PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_AgentEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIGITALOCEAN_AGENT_ENDPOINT", "https://agent.example.com")
	t.Setenv("DIGITALOCEAN_AGENT_KEY", "secret")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://agent.example.com", cfg.GenAI.Endpoint)
	assert.Equal(t, "secret", cfg.GenAI.Key)
	assert.True(t, cfg.HasUpstream())
	assert.True(t, cfg.IsProduction())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
history:
  backend: bolt
genai:
  endpoint: https://agent.example.com
  timeout: 30s
mock:
  token_delay: 5ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "bolt", cfg.History.Backend)
	assert.Equal(t, 30*time.Second, cfg.GenAI.Timeout)
	assert.Equal(t, 5*time.Millisecond, cfg.Mock.TokenDelay)
	assert.False(t, cfg.HasUpstream())
}
