package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/stacks/pkg/fallback"
)

// Fallback chains generators in priority order. Each call tries providers
// front to back and returns the first success.
type Fallback struct {
	providers []Generator
	logger    *slog.Logger
}

var _ Generator = (*Fallback)(nil)

// NewFallback creates a fallback chain over the given providers, in order.
func NewFallback(providers []Generator, logger *slog.Logger) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one generation provider is required")
	}

	return &Fallback{
		providers: providers,
		logger:    logger,
	}, nil
}

// Generate tries each provider in order until one returns a completion.
func (f *Fallback) Generate(ctx context.Context, req Request) (string, error) {
	return fallback.Invoke(ctx, "generate", f.providers,
		func(p Generator) string { return p.Name() },
		func(ctx context.Context, p Generator) (string, error) {
			return p.Generate(ctx, req)
		},
		f.logger,
	)
}

// Name identifies the chain by its primary provider.
func (f *Fallback) Name() string {
	return "fallback(" + f.providers[0].Name() + ")"
}

// Close closes every provider in the chain, returning the first error.
func (f *Fallback) Close() error {
	var firstErr error
	for _, p := range f.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
