package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document is chunked,
	// embedded and written to the vector store.
	EventTypeDocumentIngested = "stacks.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for an
// ingested document.
type DocumentIngestedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Document      DocumentMeta  `json:"document"`
	Embedding     EmbeddingMeta `json:"embedding"`
	Store         StoreMeta     `json:"store"`
}

// DocumentMeta identifies the ingested document.
type DocumentMeta struct {
	DocumentID     string `json:"document_id"`
	OriginalName   string `json:"original_name"`
	CollectionName string `json:"collection_name"`
	ChunkCount     int    `json:"chunk_count"`
	TextLength     int    `json:"text_length"`
}

// EmbeddingMeta captures which embedder produced the vectors.
type EmbeddingMeta struct {
	Provider   string `json:"provider"`
	Dimensions uint   `json:"dimensions"`
}

// StoreMeta captures which vector store received the chunks.
type StoreMeta struct {
	Provider string `json:"provider,omitempty"`
}
