package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)
	cfg.Model.Project = expandEnvVars(cfg.Model.Project)
	cfg.Search.APIKey = expandEnvVars(cfg.Search.APIKey)
	cfg.Mail.IMAP.Password = expandEnvVars(cfg.Mail.IMAP.Password)
	cfg.Voice.AccountSID = expandEnvVars(cfg.Voice.AccountSID)
	cfg.Voice.AuthToken = expandEnvVars(cfg.Voice.AuthToken)
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Gateway.Auth.Password = expandEnvVars(cfg.Gateway.Auth.Password)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := Defaults()
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	return decode(data)
}

// FromRaw builds a Config from a generic map as LoadRaw returns it, so an
// edit can be checked before it is saved.
func FromRaw(raw map[string]any) (Config, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return Defaults(), err
	}
	return decode(data)
}

func decode(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file, creating its
// directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	a := &cfg.Assistant
	if a.Name == "" {
		a.Name = DefaultAssistantName
	}
	if a.Location == "" {
		a.Location = DefaultLocation
	}
	if a.Timezone == "" {
		a.Timezone = DefaultTimezone
	}

	m := &cfg.Model
	if m.Provider == "" {
		m.Provider = DefaultModelProvider
	}
	if m.Region == "" {
		m.Region = DefaultRegion
	}
	if m.Model == "" {
		m.Model = DefaultVertexModel
	}
	if m.GeminiModel == "" {
		m.GeminiModel = DefaultGeminiModel
	}
	if m.MaxOutputTokens == 0 {
		m.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if m.Temperature == nil {
		t := DefaultTemperature
		m.Temperature = &t
	}
	if m.CallTimeoutSeconds == 0 {
		m.CallTimeoutSeconds = DefaultCallTimeoutSeconds
	}

	s := &cfg.Session
	if s.Scope == "" {
		s.Scope = "per-caller"
	}
	if s.Store == "" {
		s.Store = "file"
	}
	if s.MaxMessages == 0 {
		s.MaxMessages = DefaultMaxMessages
	}

	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = DefaultSearchEndpoint
	}
	if cfg.Search.Country == "" {
		cfg.Search.Country = DefaultSearchCountry
	}
	if cfg.Search.Num == 0 {
		cfg.Search.Num = DefaultSearchNum
	}

	if cfg.Mail.Backend == "" {
		cfg.Mail.Backend = "gmail"
	}
	if cfg.Mail.UnreadLimit == 0 {
		cfg.Mail.UnreadLimit = DefaultUnreadLimit
	}
	if cfg.Mail.IMAP.Port == 0 {
		cfg.Mail.IMAP.Port = DefaultIMAPPort
	}
	if cfg.Mail.IMAP.Mailbox == "" {
		cfg.Mail.IMAP.Mailbox = "INBOX"
	}

	v := &cfg.Voice
	if v.APIBase == "" {
		v.APIBase = "https://api.twilio.com"
	}
	if v.Language == "" {
		v.Language = DefaultLanguage
	}
	if v.VoiceName == "" {
		v.VoiceName = DefaultVoiceName
	}
	if v.Intro == "" {
		v.Intro = DefaultIntro
	}
	if v.Fallback == "" {
		v.Fallback = DefaultFallback
	}
	if v.Apology == "" {
		v.Apology = DefaultApology
	}
	if v.GatherTimeoutSeconds == 0 {
		v.GatherTimeoutSeconds = DefaultGatherTimeout
	}
	if v.TurnTimeoutSeconds == 0 {
		v.TurnTimeoutSeconds = DefaultTurnTimeout
	}
	if v.CallbackDelaySeconds == 0 {
		v.CallbackDelaySeconds = DefaultCallbackDelay
	}

	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultGatewayPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.Auth.Mode == "" {
		cfg.Gateway.Auth.Mode = "token"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads MATRIX_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MATRIX_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("MATRIX_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("MATRIX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MATRIX_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("MATRIX_MODEL_PROJECT"); v != "" {
		cfg.Model.Project = v
	}
	if v := os.Getenv("MATRIX_GEMINI_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("MATRIX_SERPER_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("MATRIX_TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Voice.AccountSID = v
	}
	if v := os.Getenv("MATRIX_TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Voice.AuthToken = v
	}
	if v := os.Getenv("MATRIX_LANGUAGE"); v != "" {
		cfg.Voice.Language = v
	}
	if v := os.Getenv("MATRIX_SESSION_STORE"); v != "" {
		cfg.Session.Store = strings.ToLower(v)
	}
}
