package federation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/papercomputeco/stacks/pkg/collections"
)

// ErrDocumentNotFound indicates no collection belongs to the document ID.
var ErrDocumentNotFound = errors.New("document not found")

// Document describes an ingested document reconstructed from its
// collection's chunk metadata.
type Document struct {
	DocumentID     string    `json:"document_id"`
	OriginalName   string    `json:"original_name"`
	CollectionName string    `json:"collection_name"`
	ChunkCount     int       `json:"chunk_count"`
	TextLength     int       `json:"text_length,omitempty"`
	Preview        string    `json:"preview,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at,omitzero"`
}

// previewRunes caps the text preview on single-document lookups.
const previewRunes = 200

// ListDocuments enumerates every ingested document in the store.
func (e *Engine) ListDocuments(ctx context.Context) ([]Document, error) {
	names, err := e.driver.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if !collections.IsDocumentCollection(name) {
			continue
		}

		doc, err := e.describeCollection(ctx, name)
		if err != nil {
			e.logger.Warn("skipping unreadable collection",
				"collection", name,
				"error", err,
			)
			continue
		}

		// Listings stay compact; the preview is for single-document lookups.
		doc.Preview = ""
		docs = append(docs, doc)
	}

	return docs, nil
}

// GetDocument finds the document with the given ID.
func (e *Engine) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	names, err := e.driver.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	for _, name := range names {
		if !collections.BelongsTo(name, documentID) {
			continue
		}

		doc, err := e.describeCollection(ctx, name)
		if err != nil {
			return nil, err
		}

		// The collection suffix only holds an ID prefix; the chunk
		// metadata is authoritative.
		if doc.DocumentID != "" && doc.DocumentID != documentID {
			continue
		}
		doc.DocumentID = documentID

		return &doc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
}

// DeleteDocument removes the document's collection from the store.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) error {
	doc, err := e.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := e.driver.DeleteCollection(ctx, doc.CollectionName); err != nil {
		return fmt.Errorf("deleting collection %s: %w", doc.CollectionName, err)
	}

	e.logger.Info("document deleted",
		"document_id", documentID,
		"collection", doc.CollectionName,
	)

	return nil
}

// describeCollection rebuilds document metadata from the collection's
// first chunk.
func (e *Engine) describeCollection(ctx context.Context, name string) (Document, error) {
	count, err := e.driver.Count(ctx, name)
	if err != nil {
		return Document{}, fmt.Errorf("counting %s: %w", name, err)
	}

	doc := Document{
		CollectionName: name,
		ChunkCount:     count,
	}

	chunks, err := e.driver.Peek(ctx, name, 1)
	if err != nil {
		return Document{}, fmt.Errorf("peeking %s: %w", name, err)
	}

	if len(chunks) > 0 {
		meta := chunks[0].Metadata
		doc.DocumentID = meta["document_id"]
		doc.OriginalName = meta["original_name"]
		if uploaded, err := time.Parse(time.RFC3339, meta["uploaded_at"]); err == nil {
			doc.UploadedAt = uploaded
		}
		if length, err := strconv.Atoi(meta["text_length"]); err == nil {
			doc.TextLength = length
		}

		if runes := []rune(chunks[0].Text); len(runes) > previewRunes {
			doc.Preview = string(runes[:previewRunes])
		} else {
			doc.Preview = chunks[0].Text
		}
	}

	return doc, nil
}
