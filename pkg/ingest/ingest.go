// Package ingest turns raw documents into embedded chunks in the vector
// store. Each document gets its own collection so queries can be federated
// across documents later.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/collections"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var (
	// ErrTextTooShort indicates the document body is below the minimum
	// ingestable length.
	ErrTextTooShort = errors.New("document text too short")

	// ErrStoreWrite indicates the vector store rejected the chunks.
	ErrStoreWrite = errors.New("vector store write failed")
)

var (
	defaultChunkSize     = 1000
	defaultMinTextLength = 10
)

// Config holds configuration for the ingestor.
type Config struct {
	// Driver is the vector store the chunks are written to.
	Driver vector.Driver

	// Embedder produces chunk embeddings.
	Embedder embeddings.Embedder

	// Publisher receives a DocumentIngestedEvent after each successful
	// ingest. Optional; nil disables events.
	Publisher eventstream.Publisher

	// ChunkSize is the chunk length in runes (defaults to 1000).
	ChunkSize int

	// MinTextLength is the minimum document length in runes (defaults
	// to 10).
	MinTextLength int

	Logger *slog.Logger
}

// Receipt describes an ingested document.
type Receipt struct {
	DocumentID     string    `json:"document_id"`
	OriginalName   string    `json:"original_name"`
	CollectionName string    `json:"collection_name"`
	ChunkCount     int       `json:"chunk_count"`
	TextLength     int       `json:"text_length"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Ingestor chunks, embeds and stores documents.
type Ingestor struct {
	driver        vector.Driver
	embedder      embeddings.Embedder
	publisher     eventstream.Publisher
	chunkSize     int
	minTextLength int
	logger        *slog.Logger
}

// NewIngestor creates a new ingestor.
func NewIngestor(c *Config) (*Ingestor, error) {
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	minTextLength := c.MinTextLength
	if minTextLength <= 0 {
		minTextLength = defaultMinTextLength
	}

	return &Ingestor{
		driver:        c.Driver,
		embedder:      c.Embedder,
		publisher:     c.Publisher,
		chunkSize:     chunkSize,
		minTextLength: minTextLength,
		logger:        c.Logger,
	}, nil
}

// Ingest stores a document: it assigns a document ID, derives the
// collection name, chunks the text, embeds the chunks and writes them to
// the vector store. Each successful ingest emits a document event.
func (i *Ingestor) Ingest(ctx context.Context, originalName, text string) (*Receipt, error) {
	return i.IngestWithID(ctx, uuid.New().String(), originalName, text)
}

// IngestWithID ingests a document under a caller-supplied document ID.
// Async callers use this to hand the ID back before the work completes.
func (i *Ingestor) IngestWithID(ctx context.Context, documentID, originalName, text string) (*Receipt, error) {
	textLength := utf8.RuneCountInString(text)
	if textLength < i.minTextLength {
		return nil, fmt.Errorf("%w: %d runes, need at least %d", ErrTextTooShort, textLength, i.minTextLength)
	}

	collectionName := collections.Name(originalName, documentID)
	uploadedAt := time.Now().UTC()

	texts, err := chunker.Split(text, i.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunking document: %w", err)
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding document: %w", err)
	}

	if err := i.driver.EnsureCollection(ctx, collectionName, i.embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("%w: ensuring collection %s: %v", ErrStoreWrite, collectionName, err)
	}

	chunks := make([]vector.Chunk, len(texts))
	for idx, chunkText := range texts {
		chunks[idx] = vector.Chunk{
			ID:        collections.ChunkID(documentID, idx),
			Text:      chunkText,
			Embedding: vectors[idx],
			Metadata: map[string]string{
				"document_id":   documentID,
				"original_name": originalName,
				"uploaded_at":   uploadedAt.Format(time.RFC3339),
				"chunk_index":   strconv.Itoa(idx),
				"text_length":   strconv.Itoa(textLength),
			},
		}
	}

	if err := i.driver.Add(ctx, collectionName, chunks); err != nil {
		return nil, fmt.Errorf("%w: adding chunks to %s: %v", ErrStoreWrite, collectionName, err)
	}

	i.logger.Info("document ingested",
		"document_id", documentID,
		"collection", collectionName,
		"chunks", len(chunks),
	)

	i.publishEvent(ctx, documentID, originalName, collectionName, len(chunks), textLength, uploadedAt)

	return &Receipt{
		DocumentID:     documentID,
		OriginalName:   originalName,
		CollectionName: collectionName,
		ChunkCount:     len(chunks),
		TextLength:     textLength,
		UploadedAt:     uploadedAt,
	}, nil
}

// publishEvent emits a document event. Event failures are logged, never
// returned; the document is already durable at this point.
func (i *Ingestor) publishEvent(ctx context.Context, documentID, originalName, collectionName string, chunkCount, textLength int, emittedAt time.Time) {
	if i.publisher == nil {
		return
	}

	event := &eventstream.DocumentIngestedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentIngested,
		EventID:       "evt_" + uuid.New().String(),
		EmittedAt:     emittedAt,
		Document: eventstream.DocumentMeta{
			DocumentID:     documentID,
			OriginalName:   originalName,
			CollectionName: collectionName,
			ChunkCount:     chunkCount,
			TextLength:     textLength,
		},
		Embedding: eventstream.EmbeddingMeta{
			Provider:   i.embedder.Name(),
			Dimensions: i.embedder.Dimensions(),
		},
	}

	if err := i.publisher.PublishDocumentIngested(ctx, event); err != nil {
		i.logger.Warn("failed to publish document event",
			"document_id", documentID,
			"error", err,
		)
	}
}
