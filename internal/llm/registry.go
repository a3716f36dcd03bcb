package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/logging"
)

// ProviderError is returned when a model provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered model provider")
}

// Alias maps a model name to a provider.
// e.g., Alias("chat-bison", "vertex") means "chat-bison" resolves to the "vertex" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no model provider for %q", model)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds clients for the configured provider and its
// fallbacks. The primary provider must construct; a fallback that fails is
// logged and skipped.
func NewRegistryFromConfig(ctx context.Context, cfg config.ModelConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	temp := cfg.TemperatureOr(config.DefaultTemperature)

	build := func(provider string) (Client, error) {
		switch provider {
		case "vertex":
			return NewVertexClient(ctx, VertexConfig{
				Project:         cfg.Project,
				Region:          cfg.Region,
				Model:           cfg.Model,
				Endpoint:        cfg.Endpoint,
				MaxOutputTokens: cfg.MaxOutputTokens,
				Temperature:     temp,
			}, log)
		case "gemini":
			return NewGeminiClient(ctx, GeminiConfig{
				APIKey:          cfg.APIKey,
				Model:           cfg.GeminiModel,
				MaxOutputTokens: cfg.MaxOutputTokens,
				Temperature:     temp,
			}, log)
		default:
			return nil, fmt.Errorf("unknown model provider %q", provider)
		}
	}

	primary, err := build(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("model provider %s: %w", cfg.Provider, err)
	}
	reg.Register(cfg.Provider, primary)
	reg.SetFallback(cfg.Provider)

	for _, fb := range cfg.Fallbacks {
		if fb == cfg.Provider {
			continue
		}
		c, err := build(fb)
		if err != nil {
			reg.log.Warn().Str("provider", fb).Err(err).Msg("skipping fallback provider")
			continue
		}
		reg.Register(fb, c)
	}

	reg.Alias(cfg.Model, "vertex")
	reg.Alias(cfg.GeminiModel, "gemini")
	return reg, nil
}
