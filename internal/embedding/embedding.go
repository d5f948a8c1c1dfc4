// Package embedding generates vector embeddings for semantic movie
// retrieval. A Provider interface fronts OpenAI, Ollama, and a
// deterministic offline provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/marquee-ai/marquee/internal/config"
)

// Provider generates vector embeddings from text. Implementations must
// be safe for concurrent use.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimensionality.
	Dimensions() int
}

// FromConfig builds the configured provider.
func FromConfig(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding: openai provider requires an API key")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Endpoint), nil
	case "ollama":
		return NewOllamaProvider(cfg.Endpoint, cfg.Model), nil
	case "noop", "":
		return NewNoopProvider(0), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}
