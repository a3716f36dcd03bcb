package config

import (
	"fmt"
	"net/mail"
	"slices"
	"time"
	_ "time/tzdata"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var (
	validProviders     = []string{"vertex", "gemini"}
	validScopes        = []string{"per-caller", "global"}
	validStores        = []string{"file", "sqlite", "memory"}
	validMailBackends  = []string{"gmail", "imap"}
	validBinds         = []string{"loopback", "lan", "custom"}
	validAuthModes     = []string{"token", "password", "none"}
	validLogLevels     = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	validConsoleStyles = []string{"pretty", "json"}
)

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}

	// Assistant validation
	if cfg.Assistant.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Assistant.Timezone); err != nil {
			add("assistant.timezone", "unknown timezone %q", cfg.Assistant.Timezone)
		}
	}
	for i, c := range cfg.Assistant.Contacts {
		if c.Name == "" {
			add(fmt.Sprintf("assistant.contacts[%d].name", i), "name is required")
		}
		if _, err := mail.ParseAddress(c.Email); err != nil {
			add(fmt.Sprintf("assistant.contacts[%d].email", i), "invalid address %q", c.Email)
		}
	}

	// Model validation
	oneOf("model.provider", cfg.Model.Provider, validProviders)
	for i, fb := range cfg.Model.Fallbacks {
		oneOf(fmt.Sprintf("model.fallbacks[%d]", i), fb, validProviders)
	}
	usesGemini := cfg.Model.Provider == "gemini" || slices.Contains(cfg.Model.Fallbacks, "gemini")
	if usesGemini && cfg.Model.APIKey == "" {
		add("model.apiKey", "required when the gemini provider is used")
	}
	if cfg.Model.MaxOutputTokens < 0 {
		add("model.maxOutputTokens", "must be positive, got %d", cfg.Model.MaxOutputTokens)
	}
	if t := cfg.Model.TemperatureOr(DefaultTemperature); t < 0 || t > 2 {
		add("model.temperature", "must be between 0 and 2, got %g", t)
	}
	if cfg.Model.CallTimeoutSeconds < 0 {
		add("model.callTimeoutSeconds", "must be positive, got %d", cfg.Model.CallTimeoutSeconds)
	}

	// Session validation
	oneOf("session.scope", cfg.Session.Scope, validScopes)
	oneOf("session.store", cfg.Session.Store, validStores)
	if cfg.Session.MaxMessages < 0 || cfg.Session.MaxMessages == 1 {
		add("session.maxMessages", "must be 0 (default) or at least 2, got %d", cfg.Session.MaxMessages)
	}

	// Mail validation
	oneOf("mail.backend", cfg.Mail.Backend, validMailBackends)
	if cfg.Mail.Backend == "imap" {
		if cfg.Mail.IMAP.Host == "" {
			add("mail.imap.host", "host is required for the imap backend")
		}
		if cfg.Mail.IMAP.Username == "" {
			add("mail.imap.username", "username is required for the imap backend")
		}
	}
	if cfg.Mail.IMAP.Port < 0 || cfg.Mail.IMAP.Port > 65535 {
		add("mail.imap.port", "port must be 0-65535, got %d", cfg.Mail.IMAP.Port)
	}
	if cfg.Mail.UnreadLimit < 0 {
		add("mail.unreadLimit", "must be positive, got %d", cfg.Mail.UnreadLimit)
	}

	// Voice validation
	if cfg.Voice.ValidateSignature && cfg.Voice.AuthToken == "" {
		add("voice.validateSignature", "signature validation requires voice.authToken")
	}
	if cfg.Voice.TurnTimeoutSeconds < 0 {
		add("voice.turnTimeoutSeconds", "must be positive, got %d", cfg.Voice.TurnTimeoutSeconds)
	}
	if cfg.Voice.GatherTimeoutSeconds < 0 {
		add("voice.gatherTimeoutSeconds", "must be positive, got %d", cfg.Voice.GatherTimeoutSeconds)
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	oneOf("gateway.bind", cfg.Gateway.Bind, validBinds)
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind is custom")
	}
	oneOf("gateway.auth.mode", cfg.Gateway.Auth.Mode, validAuthModes)

	// Logging validation
	oneOf("logging.level", cfg.Logging.Level, validLogLevels)
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, validConsoleStyles)

	return issues
}
