package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.TaskTimeout)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skwaq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
model:
  provider: anthropic
  name: claude-3-5-sonnet-20241022
orchestrator:
  task_timeout: 90s
agents:
  knowledge:
    max_results: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Model.Name)
	assert.Equal(t, 90*time.Second, cfg.Orchestrator.TaskTimeout)
	assert.Equal(t, 10, cfg.AgentSettings("knowledge")["max_results"])
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skwaq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: anthropic\n"), 0o600))

	t.Setenv("SKWAQ_MODEL_PROVIDER", "openai")
	t.Setenv("SKWAQ_REDIS_ADDR", "localhost:6379")
	t.Setenv("SKWAQ_TASK_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.TaskTimeout)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("SKWAQ_MODEL_PROVIDER", "watson")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model provider")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SKWAQ_TASK_TIMEOUT", "soon")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestAgentSettingsUnknownKey(t *testing.T) {
	cfg := Default()
	settings := cfg.AgentSettings("nope")
	assert.NotNil(t, settings)
	assert.Empty(t, settings)
}
