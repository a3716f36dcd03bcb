package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "Matrix", cfg.Assistant.Name)
	assert.Equal(t, "Bengaluru, India", cfg.Assistant.Location)
	assert.Equal(t, "Asia/Kolkata", cfg.Assistant.Timezone)
	assert.Equal(t, "vertex", cfg.Model.Provider)
	assert.Equal(t, "chat-bison", cfg.Model.Model)
	assert.Equal(t, "us-central1", cfg.Model.Region)
	assert.Equal(t, 256, cfg.Model.MaxOutputTokens)
	assert.InDelta(t, 0.2, cfg.Model.TemperatureOr(0), 1e-9)
	assert.Equal(t, 60, cfg.Model.CallTimeoutSeconds)
	assert.Equal(t, "per-caller", cfg.Session.Scope)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, 200, cfg.Session.MaxMessages)
	assert.Equal(t, "https://google.serper.dev/search", cfg.Search.Endpoint)
	assert.Equal(t, "in", cfg.Search.Country)
	assert.Equal(t, 5, cfg.Search.Num)
	assert.Equal(t, "gmail", cfg.Mail.Backend)
	assert.Equal(t, "en-US", cfg.Voice.Language)
	assert.Equal(t, "Google.en-US-Wavenet-F", cfg.Voice.VoiceName)
	assert.Equal(t, "How can I help you?", cfg.Voice.Intro)
	assert.Equal(t, "I didn't hear anything. Goodbye!", cfg.Voice.Fallback)
	assert.Equal(t, 5, cfg.Voice.GatherTimeoutSeconds)
	assert.Equal(t, 12, cfg.Voice.TurnTimeoutSeconds)
	assert.True(t, cfg.Voice.MissedCallEnabled())
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.ConsoleStyle)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
assistant:
  name: Jarvis
  timezone: Europe/London
  contacts:
    - name: Sean
      email: sean@example.com
model:
  provider: gemini
  fallbacks: [vertex]
  apiKey: key-123
  temperature: 0
session:
  scope: global
  store: sqlite
  maxMessages: 40
voice:
  language: hi-IN
  missedCall: false
gateway:
  port: 9999
  bind: lan
  auth:
    mode: password
    password: secret123
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Jarvis", cfg.Assistant.Name)
	assert.Equal(t, "Bengaluru, India", cfg.Assistant.Location, "unset fields keep defaults")
	assert.Equal(t, "Europe/London", cfg.Assistant.Timezone)
	require.Len(t, cfg.Assistant.Contacts, 1)
	assert.Equal(t, "sean@example.com", cfg.Assistant.Contacts[0].Email)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, []string{"vertex"}, cfg.Model.Fallbacks)
	assert.Equal(t, 0.0, cfg.Model.TemperatureOr(1), "explicit zero temperature is kept")
	assert.Equal(t, "global", cfg.Session.Scope)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, 40, cfg.Session.MaxMessages)
	assert.Equal(t, "hi-IN", cfg.Voice.Language)
	assert.False(t, cfg.Voice.MissedCallEnabled())
	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "password", cfg.Gateway.Auth.Mode)
	assert.Equal(t, "secret123", cfg.Gateway.Auth.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MATRIX_GATEWAY_PORT", "12345")
	t.Setenv("MATRIX_LOG_LEVEL", "TRACE")
	t.Setenv("MATRIX_MODEL_PROVIDER", "Gemini")
	t.Setenv("MATRIX_SERPER_API_KEY", "serper")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Gateway.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "serper", cfg.Search.APIKey)
}

func TestLoadExpandsSecrets(t *testing.T) {
	t.Setenv("TEST_TWILIO_TOKEN", "tok")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
voice:
  authToken: ${TEST_TWILIO_TOKEN}
search:
  apiKey: ${TEST_UNSET_VARIABLE}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Voice.AuthToken)
	assert.Equal(t, "${TEST_UNSET_VARIABLE}", cfg.Search.APIKey)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	require.NoError(t, SetValueAtPath(raw, []string{"voice", "language"}, "fr-FR"))
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr-FR", cfg.Voice.Language)
}

func TestSaveRawCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "config.yaml")
	require.NoError(t, SaveRaw(path, map[string]any{"assistant": map[string]any{"name": "Jarvis"}}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Jarvis", cfg.Assistant.Name)
}

func TestFromRaw(t *testing.T) {
	cfg, err := FromRaw(map[string]any{
		"session": map[string]any{"store": "sqlite"},
		"model":   map[string]any{"fallbacks": []any{"gemini"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, []string{"gemini"}, cfg.Model.Fallbacks)
	assert.Equal(t, Defaults().Voice.Language, cfg.Voice.Language)

	_, err = FromRaw(map[string]any{"gateway": map[string]any{"port": "not-a-port"}})
	assert.Error(t, err)
}
