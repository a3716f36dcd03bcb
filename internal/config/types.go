package config

// Config is the root configuration for Matrix.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant,omitempty"`
	Model     ModelConfig     `yaml:"model,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Google    GoogleConfig    `yaml:"google,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Mail      MailConfig      `yaml:"mail,omitempty"`
	Voice     VoiceConfig     `yaml:"voice,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// AssistantConfig describes the persona presented to the model.
type AssistantConfig struct {
	Name     string         `yaml:"name,omitempty"`
	Location string         `yaml:"location,omitempty"`
	Timezone string         `yaml:"timezone,omitempty"` // IANA name, e.g. "Asia/Kolkata"
	Contacts []ContactEntry `yaml:"contacts,omitempty"`
}

// ContactEntry is a named email address the assistant may act on.
type ContactEntry struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// ModelConfig selects and tunes the language model.
type ModelConfig struct {
	Provider           string   `yaml:"provider,omitempty"` // "vertex" | "gemini"
	Fallbacks          []string `yaml:"fallbacks,omitempty"`
	Project            string   `yaml:"project,omitempty"`
	Region             string   `yaml:"region,omitempty"`
	Model              string   `yaml:"model,omitempty"`
	GeminiModel        string   `yaml:"geminiModel,omitempty"`
	APIKey             string   `yaml:"apiKey,omitempty"`
	Endpoint           string   `yaml:"endpoint,omitempty"` // overrides the Vertex host
	MaxOutputTokens    int      `yaml:"maxOutputTokens,omitempty"`
	Temperature        *float64 `yaml:"temperature,omitempty"`
	CallTimeoutSeconds int      `yaml:"callTimeoutSeconds,omitempty"`
}

// SessionConfig defines session behavior.
type SessionConfig struct {
	Scope       string `yaml:"scope,omitempty"` // "per-caller" | "global"
	Store       string `yaml:"store,omitempty"` // "file" | "sqlite" | "memory"
	MaxMessages int    `yaml:"maxMessages,omitempty"`
}

// GoogleConfig points at the OAuth client and cached user token.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
}

// SearchConfig configures the web search action.
type SearchConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Country  string `yaml:"country,omitempty"`
	Num      int    `yaml:"num,omitempty"`
}

// MailConfig selects the unread-mail backend.
type MailConfig struct {
	Backend     string     `yaml:"backend,omitempty"` // "gmail" | "imap"
	UnreadLimit int        `yaml:"unreadLimit,omitempty"`
	IMAP        IMAPConfig `yaml:"imap,omitempty"`
}

// IMAPConfig holds IMAP server credentials.
type IMAPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Mailbox  string `yaml:"mailbox,omitempty"`
}

// VoiceConfig configures the telephony transport.
type VoiceConfig struct {
	AccountSID           string `yaml:"accountSid,omitempty"`
	AuthToken            string `yaml:"authToken,omitempty"`
	APIBase              string `yaml:"apiBase,omitempty"`
	Language             string `yaml:"language,omitempty"`
	VoiceName            string `yaml:"voiceName,omitempty"`
	Intro                string `yaml:"intro,omitempty"`
	Fallback             string `yaml:"fallback,omitempty"`
	Apology              string `yaml:"apology,omitempty"`
	GatherTimeoutSeconds int    `yaml:"gatherTimeoutSeconds,omitempty"`
	TurnTimeoutSeconds   int    `yaml:"turnTimeoutSeconds,omitempty"`
	MissedCall           *bool  `yaml:"missedCall,omitempty"`
	CallbackDelaySeconds int    `yaml:"callbackDelaySeconds,omitempty"`
	ValidateSignature    bool   `yaml:"validateSignature,omitempty"`
	PublicURL            string `yaml:"publicUrl,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"` // browser origins accepted on /ws
}

// GatewayAuth configures authentication for the /ws endpoint.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password" | "none"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// MissedCallEnabled reports the effective missed-call mode (default on).
func (v VoiceConfig) MissedCallEnabled() bool {
	return v.MissedCall == nil || *v.MissedCall
}

// TemperatureOr returns the configured temperature or def.
func (m ModelConfig) TemperatureOr(def float64) float64 {
	if m.Temperature == nil {
		return def
	}
	return *m.Temperature
}
