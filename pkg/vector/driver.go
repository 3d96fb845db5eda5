// Package vector provides the collection-addressable storage interface for
// document chunk embeddings. Each ingested document owns one collection;
// drivers expose enough of the underlying store to enumerate, write, and
// search those collections.
package vector

import "context"

// Chunk is a stored piece of document text with its embedding and metadata.
type Chunk struct {
	// ID is the deterministic chunk identifier ({documentID}-chunk-{index}).
	ID string

	// Text is the raw chunk content.
	Text string

	// Embedding is the vector representation of Text. May be empty on
	// writes when the driver embeds server-side.
	Embedding []float32

	// Metadata carries document-level fields (document ID, original name,
	// upload time, chunk index) used for listing and lookup.
	Metadata map[string]string
}

// QueryResult is a search hit from a single collection.
type QueryResult struct {
	Chunk

	// Collection is the collection the hit came from.
	Collection string

	// Distance is the dissimilarity between the query and the chunk.
	// Lower is closer; results sort ascending.
	Distance float32
}

// Driver handles storage and retrieval of chunk embeddings across named
// collections.
type Driver interface {
	// ListCollections returns the names of all collections in the store,
	// including any not owned by the document layer.
	ListCollections(ctx context.Context) ([]string, error)

	// EnsureCollection creates the named collection if it does not exist.
	// Calling it again with the same name is a no-op.
	EnsureCollection(ctx context.Context, name string, dimensions uint) error

	// Add stores chunks in the named collection. Chunks with an existing
	// ID are overwritten.
	Add(ctx context.Context, collection string, chunks []Chunk) error

	// Query finds the topK nearest chunks to the given embedding.
	Query(ctx context.Context, collection string, embedding []float32, topK int) ([]QueryResult, error)

	// QueryText finds the topK nearest chunks to the given text for stores
	// that embed server-side. Drivers without native text search return
	// ErrTextQueryUnsupported.
	QueryText(ctx context.Context, collection string, text string, topK int) ([]QueryResult, error)

	// Count returns the number of chunks in the named collection.
	Count(ctx context.Context, collection string) (int, error)

	// Peek returns up to limit chunks from the named collection in
	// insertion order, embeddings omitted. Used for metadata inspection.
	Peek(ctx context.Context, collection string, limit int) ([]Chunk, error)

	// DeleteCollection removes the named collection and all of its chunks.
	DeleteCollection(ctx context.Context, collection string) error

	// Close releases any resources held by the driver.
	Close() error
}
