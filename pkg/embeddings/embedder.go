// Package embeddings provides text embedding providers and an ordered
// fallback chain over them.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding indicates a failure while producing an embedding.
var ErrEmbedding = errors.New("embedding error")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts into vector embeddings. The
	// returned slice is positionally aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the width of the vectors this embedder produces.
	Dimensions() uint

	// Name identifies the provider for logging and error reporting.
	Name() string

	// Close releases any resources held by the embedder.
	Close() error
}
