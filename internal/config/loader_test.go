package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults_SetsExpectedValues(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8360, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "NotificationCenter", cfg.Monitor.ProcessName)
	assert.Equal(t, "com.microsoft.teams2", cfg.Monitor.AppID)
	assert.Equal(t, "com.microsoft.teams", cfg.Monitor.AppIDClassic)
	assert.Equal(t, time.Second, cfg.Monitor.DebounceWindow)
	assert.Contains(t, cfg.Monitor.UrgentSoundPatterns, "urgent")
	assert.Contains(t, cfg.Monitor.ChatSoundPatterns, "basic")
	assert.True(t, cfg.Sound.Enabled)
	assert.Equal(t, "afplay", cfg.Sound.Player)
	assert.Equal(t, 90, cfg.Database.RetentionDays)
}

func TestLoadFromFile_ParsesYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  log_level: "debug"

monitor:
  process_name: "usernoted"
  app_id: "org.example.chat"
  app_id_classic: "org.example.chat-classic"
  debounce_window: 2s
  urgent_sound_patterns:
    - "klaxon"
    - "siren"

alert:
  auto_reset: 5m

webhook:
  url: "https://hooks.example.com/chime"
  bearer_token: "tok"
  payload_urgent:
    text: "drop everything"

database:
  retention_days: 14
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "usernoted", cfg.Monitor.ProcessName)
	assert.Equal(t, "org.example.chat", cfg.Monitor.AppID)
	assert.Equal(t, 2*time.Second, cfg.Monitor.DebounceWindow)
	assert.Equal(t, []string{"klaxon", "siren"}, cfg.Monitor.UrgentSoundPatterns)
	assert.Equal(t, 5*time.Minute, cfg.Alert.AutoReset)
	assert.Equal(t, "https://hooks.example.com/chime", cfg.Webhook.URL)
	assert.Equal(t, map[string]any{"text": "drop everything"}, cfg.Webhook.PayloadUrgent)
	assert.Equal(t, 14, cfg.Database.RetentionDays)
}

func TestLoadFromFile_MissingFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("CHIME_TEST_BEARER", "super-secret-value")

	path := writeConfig(t, `
webhook:
  url: "https://hooks.example.com/chime"
  bearer_token: "${CHIME_TEST_BEARER}"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", cfg.Webhook.BearerToken)
}

func TestLoadFromFile_EnvOverridesBeatFileValues(t *testing.T) {
	t.Setenv("CHIME_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("CHIME_API_TOKEN", "env-token")

	path := writeConfig(t, `
webhook:
  url: "https://file.example.com/hook"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/hook", cfg.Webhook.URL)
	assert.Equal(t, "env-token", cfg.Server.APIToken)
}

func TestLoadFromFile_RejectsBindAllInterfaces(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  host: "0.0.0.0"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0.0.0.0")
}

func TestLoadFromFile_RejectsInvalidPort(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 99999
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFromFile_RejectsEmptyAppID(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
monitor:
  app_id: ""
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id")
}

func TestLoadFromFile_RejectsZeroDebounce(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
monitor:
  debounce_window: 0s
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce_window")
}

func TestExpandHome_ReplacesLeadingTilde(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "chime"), ExpandHome("~/.config/chime"))
	assert.Equal(t, "/var/lib/chime", ExpandHome("/var/lib/chime"))
}

func TestResolvePath_PrefersExplicitPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/custom.yaml", ResolvePath("/tmp/custom.yaml"))
}

func TestPayloads_OmitsUnsetEvents(t *testing.T) {
	t.Parallel()

	w := WebhookConfig{PayloadUrgent: map[string]any{"text": "now"}}
	payloads := w.Payloads()
	assert.Equal(t, map[string]map[string]any{"urgent": {"text": "now"}}, payloads)
}
