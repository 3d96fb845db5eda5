package embeddings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/stacks/pkg/fallback"
)

// Fallback chains embedders in priority order. Each call tries providers
// front to back and returns the first success.
type Fallback struct {
	providers []Embedder
	logger    *slog.Logger
}

var _ Embedder = (*Fallback)(nil)

// NewFallback creates a fallback chain over the given providers, in order.
func NewFallback(providers []Embedder, logger *slog.Logger) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one embedding provider is required")
	}

	return &Fallback{
		providers: providers,
		logger:    logger,
	}, nil
}

// Embed tries each provider in order until one returns an embedding.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	return fallback.Invoke(ctx, "embed", f.providers,
		func(p Embedder) string { return p.Name() },
		func(ctx context.Context, p Embedder) ([]float32, error) {
			return p.Embed(ctx, text)
		},
		f.logger,
	)
}

// EmbedBatch embeds every text, falling back per item. An item that fails
// on every provider degrades to a zero vector instead of failing the batch,
// so one bad chunk cannot sink a whole document.
func (f *Fallback) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := fallback.Invoke(ctx, "embed batch", f.providers,
		func(p Embedder) string { return p.Name() },
		func(ctx context.Context, p Embedder) ([][]float32, error) {
			return p.EmbedBatch(ctx, texts)
		},
		f.logger,
	)
	if err == nil {
		return vectors, nil
	}

	var allFailed *fallback.AllFailedError
	if !errors.As(err, &allFailed) {
		return nil, err
	}

	f.logger.Warn("batch embedding failed on all providers, degrading per item",
		"items", len(texts),
	)

	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("embedding degraded to zero vector",
				"index", i,
				"error", err,
			)
			vec = make([]float32, f.Dimensions())
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// Dimensions reports the vector width of the primary provider.
func (f *Fallback) Dimensions() uint {
	return f.providers[0].Dimensions()
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
