package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marquee-ai/marquee/internal/config"
	"github.com/marquee-ai/marquee/internal/logging"
)

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
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name/alias to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match
// is found.
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
	return nil, fmt.Errorf("no LLM provider for model %q", model)
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

// NewRegistryFromConfig builds a Registry from configured providers.
// Providers with missing credentials are skipped with a warning so a
// partially configured setup still starts with what it has.
func NewRegistryFromConfig(cfg config.LLMConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := cfg.Providers[name]
		client := clientFromEntry(name, p)
		if client == nil {
			reg.log.Warn().Str("provider", name).Str("type", p.Type).
				Msg("provider not usable, skipping (missing model or api key?)")
			continue
		}
		reg.Register(name, client)
		for _, alias := range p.Aliases {
			reg.Alias(alias, name)
		}
	}

	if cfg.Primary != "" {
		reg.SetFallback(cfg.Primary)
	}
	return reg
}

func clientFromEntry(name string, p config.LLMProviderConfig) Client {
	if p.Model == "" {
		return nil
	}
	switch p.Type {
	case "gemini":
		if p.APIKey == "" {
			return nil
		}
		return NewGeminiClient(p.APIKey, p.Model, p.BaseURL)
	case "anthropic":
		if p.APIKey == "" {
			return nil
		}
		return NewAnthropicClient(p.APIKey, p.Model, p.BaseURL)
	case "openai":
		if p.APIKey == "" && p.BaseURL == "" {
			return nil
		}
		return NewOpenAIClient(name, p.APIKey, p.Model, p.BaseURL)
	case "ollama":
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOpenAIClient(name, p.APIKey, p.Model, baseURL)
	default:
		return nil
	}
}
