// Package generationutils constructs generators from configuration.
package generationutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/generation/gemini"
	"github.com/papercomputeco/stacks/pkg/generation/ollama"
	"github.com/papercomputeco/stacks/pkg/generation/openai"
)

type NewGeneratorOpts struct {
	// Providers is a comma-separated priority list, e.g. "gemini,openai".
	Providers string

	// Target is the base URL for self-hosted providers like ollama.
	Target string

	Model string

	OpenAIAPIKey string
	GeminiAPIKey string

	Logger *slog.Logger
}

// NewGenerator builds the configured generation chain. A single provider
// is returned directly; multiple providers are wrapped in a fallback chain
// in the order listed.
func NewGenerator(o *NewGeneratorOpts) (generation.Generator, error) {
	names := strings.Split(o.Providers, ",")

	providers := make([]generation.Generator, 0, len(names))
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
		return nil, fmt.Errorf("no generation providers configured")
	}

	if len(providers) == 1 {
		return providers[0], nil
	}

	return generation.NewFallback(providers, o.Logger)
}

func newProvider(name string, o *NewGeneratorOpts) (generation.Generator, error) {
	switch name {
	case "ollama":
		return ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: o.Target,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewGenerator(openai.GeneratorConfig{
			APIKey: o.OpenAIAPIKey,
			Model:  o.Model,
		})
	case "gemini":
		return gemini.NewGenerator(gemini.GeneratorConfig{
			APIKey: o.GeminiAPIKey,
			Model:  o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", name)
	}
}
