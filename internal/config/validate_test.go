package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"provider", func(c *Config) { c.Model.Provider = "openai" }, "model.provider"},
		{"fallback", func(c *Config) { c.Model.Fallbacks = []string{"claude"} }, "model.fallbacks[0]"},
		{"scope", func(c *Config) { c.Session.Scope = "per-sender" }, "session.scope"},
		{"store", func(c *Config) { c.Session.Store = "redis" }, "session.store"},
		{"mail backend", func(c *Config) { c.Mail.Backend = "pop3" }, "mail.backend"},
		{"bind", func(c *Config) { c.Gateway.Bind = "tailnet" }, "gateway.bind"},
		{"auth mode", func(c *Config) { c.Gateway.Auth.Mode = "oauth" }, "gateway.auth.mode"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.path, issues[0].Path)
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 99999
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "gateway.port", issues[0].Path)
}

func TestValidate_Timezone(t *testing.T) {
	cfg := Defaults()
	cfg.Assistant.Timezone = "Mars/Olympus"
	assert.Contains(t, issuePaths(Validate(&cfg)), "assistant.timezone")
}

func TestValidate_Contacts(t *testing.T) {
	cfg := Defaults()
	cfg.Assistant.Contacts = []ContactEntry{
		{Name: "Sean", Email: "sean@example.com"},
		{Name: "", Email: "not-an-address"},
	}
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "assistant.contacts[1].name")
	assert.Contains(t, paths, "assistant.contacts[1].email")
	assert.NotContains(t, paths, "assistant.contacts[0].email")
}

func TestValidate_GeminiNeedsAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Model.Fallbacks = []string{"gemini"}
	assert.Contains(t, issuePaths(Validate(&cfg)), "model.apiKey")

	cfg.Model.APIKey = "k"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Temperature(t *testing.T) {
	cfg := Defaults()
	hot := 3.5
	cfg.Model.Temperature = &hot
	assert.Contains(t, issuePaths(Validate(&cfg)), "model.temperature")
}

func TestValidate_IMAPBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "imap"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "mail.imap.host")
	assert.Contains(t, paths, "mail.imap.username")

	cfg.Mail.IMAP.Host = "imap.example.com"
	cfg.Mail.IMAP.Username = "me"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_SignatureNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Voice.ValidateSignature = true
	assert.Contains(t, issuePaths(Validate(&cfg)), "voice.validateSignature")
}

func TestValidate_CustomBind(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Bind = "custom"
	assert.Contains(t, issuePaths(Validate(&cfg)), "gateway.customBindHost")
}

func TestValidate_SessionMaxMessages(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		valid bool
	}{
		{"default", 0, true},
		{"single exchange", 2, true},
		{"one message", 1, false},
		{"negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Session.MaxMessages = tt.max
			paths := issuePaths(Validate(&cfg))
			if tt.valid {
				assert.NotContains(t, paths, "session.maxMessages")
			} else {
				assert.Contains(t, paths, "session.maxMessages")
			}
		})
	}
}

func TestValidate_MultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = -1
	cfg.Session.MaxMessages = -3
	cfg.Logging.Level = "verbose"

	issues := Validate(&cfg)
	assert.GreaterOrEqual(t, len(issues), 3)
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{
		Path:    "gateway.port",
		Message: "port must be 0-65535, got -1",
	}
	assert.Equal(t, "gateway.port: port must be 0-65535, got -1", issue.String())
}
