// Package embeddingutils constructs embedders from configuration.
package embeddingutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/embeddings/gemini"
	"github.com/papercomputeco/stacks/pkg/embeddings/ollama"
	"github.com/papercomputeco/stacks/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	// Providers is a comma-separated priority list, e.g. "gemini,openai".
	Providers string

	// Target is the base URL for self-hosted providers like ollama.
	Target string

	Model      string
	Dimensions uint

	OpenAIAPIKey string
	GeminiAPIKey string

	Logger *slog.Logger
}

// NewEmbedder builds the configured embedding chain. A single provider is
// returned directly; multiple providers are wrapped in a fallback chain in
// the order listed.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	names := strings.Split(o.Providers, ",")

	providers := make([]embeddings.Embedder, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		provider, err := newProvider(name, o)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no embedding providers configured")
	}

	if len(providers) == 1 {
		return providers[0], nil
	}

	return embeddings.NewFallback(providers, o.Logger)
}

func newProvider(name string, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch name {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.Target,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.OpenAIAPIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "gemini":
		return gemini.NewEmbedder(gemini.EmbedderConfig{
			APIKey:     o.GeminiAPIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}
