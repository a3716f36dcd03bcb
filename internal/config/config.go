package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values shared by Defaults and applyDefaults.
const (
	DefaultAssistantName      = "Matrix"
	DefaultLocation           = "Bengaluru, India"
	DefaultTimezone           = "Asia/Kolkata"
	DefaultModelProvider      = "vertex"
	DefaultRegion             = "us-central1"
	DefaultVertexModel        = "chat-bison"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultMaxOutputTokens    = 256
	DefaultTemperature        = 0.2
	DefaultCallTimeoutSeconds = 60
	DefaultMaxMessages        = 200
	DefaultSearchEndpoint     = "https://google.serper.dev/search"
	DefaultSearchCountry      = "in"
	DefaultSearchNum          = 5
	DefaultUnreadLimit        = 5
	DefaultIMAPPort           = 993
	DefaultLanguage           = "en-US"
	DefaultVoiceName          = "Google.en-US-Wavenet-F"
	DefaultIntro              = "How can I help you?"
	DefaultFallback           = "I didn't hear anything. Goodbye!"
	DefaultApology            = "Sorry, I ran into a problem answering that. Please try again."
	DefaultGatherTimeout      = 5
	DefaultTurnTimeout        = 12
	DefaultCallbackDelay      = 2
	DefaultGatewayPort        = 8080
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}
