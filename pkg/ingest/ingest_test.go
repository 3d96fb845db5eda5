package ingest_test

import (
	"context"
	"strconv"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/collections"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

// stubEmbedder produces deterministic 3-wide vectors.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = s.Embed(ctx, text)
	}
	return vectors, nil
}

func (stubEmbedder) Dimensions() uint { return 3 }
func (stubEmbedder) Name() string     { return "stub" }
func (stubEmbedder) Close() error     { return nil }

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.DocumentIngestedEvent
}

func (r *recordingPublisher) PublishDocumentIngested(_ context.Context, event *eventstream.DocumentIngestedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

var _ = Describe("Ingestor", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		publisher *recordingPublisher
		ingestor  *ingest.Ingestor
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(logger.Nop())
		publisher = &recordingPublisher{}

		var err error
		ingestor, err = ingest.NewIngestor(&ingest.Config{
			Driver:    driver,
			Embedder:  stubEmbedder{},
			Publisher: publisher,
			ChunkSize: 5,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewIngestor", func() {
		It("should require a driver", func() {
			_, err := ingest.NewIngestor(&ingest.Config{Embedder: stubEmbedder{}})
			Expect(err).To(HaveOccurred())
		})

		It("should require an embedder", func() {
			_, err := ingest.NewIngestor(&ingest.Config{Driver: driver})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Ingest", func() {
		It("should reject documents below the minimum length", func() {
			_, err := ingestor.Ingest(ctx, "tiny.txt", "hi")
			Expect(err).To(MatchError(ingest.ErrTextTooShort))
		})

		It("should chunk, embed and store a document", func() {
			receipt, err := ingestor.Ingest(ctx, "hello.txt", "hello world")
			Expect(err).NotTo(HaveOccurred())

			Expect(receipt.DocumentID).NotTo(BeEmpty())
			Expect(receipt.OriginalName).To(Equal("hello.txt"))
			Expect(receipt.ChunkCount).To(Equal(3))
			Expect(receipt.TextLength).To(Equal(11))
			Expect(collections.BelongsTo(receipt.CollectionName, receipt.DocumentID)).To(BeTrue())

			count, err := driver.Count(ctx, receipt.CollectionName)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("should tag every chunk with document metadata", func() {
			receipt, err := ingestor.Ingest(ctx, "hello.txt", "hello world")
			Expect(err).NotTo(HaveOccurred())

			chunks, err := driver.Peek(ctx, receipt.CollectionName, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(3))

			Expect(chunks[0].ID).To(Equal(collections.ChunkID(receipt.DocumentID, 0)))
			Expect(chunks[0].Text).To(Equal("hello"))
			Expect(chunks[0].Metadata).To(HaveKeyWithValue("document_id", receipt.DocumentID))
			Expect(chunks[0].Metadata).To(HaveKeyWithValue("original_name", "hello.txt"))
			Expect(chunks[0].Metadata).To(HaveKeyWithValue("chunk_index", "0"))
			Expect(chunks[0].Metadata).To(HaveKey("uploaded_at"))
			Expect(chunks[0].Metadata).To(HaveKeyWithValue("text_length", strconv.Itoa(receipt.TextLength)))
		})

		It("should give each document its own collection", func() {
			first, err := ingestor.Ingest(ctx, "report.txt", "the first document body")
			Expect(err).NotTo(HaveOccurred())

			second, err := ingestor.Ingest(ctx, "report.txt", "the second document body")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.CollectionName).NotTo(Equal(second.CollectionName))

			names, err := driver.ListCollections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(HaveLen(2))
		})

		It("should publish a document event on success", func() {
			receipt, err := ingestor.Ingest(ctx, "hello.txt", "hello world")
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.events).To(HaveLen(1))
			event := publisher.events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeDocumentIngested))
			Expect(event.Document.DocumentID).To(Equal(receipt.DocumentID))
			Expect(event.Document.ChunkCount).To(Equal(3))
			Expect(event.Embedding.Provider).To(Equal("stub"))
		})

		It("should not publish an event for rejected documents", func() {
			_, err := ingestor.Ingest(ctx, "tiny.txt", "no")
			Expect(err).To(HaveOccurred())
			Expect(publisher.events).To(BeEmpty())
		})
	})

	Describe("IngestWithID", func() {
		It("should honor the supplied document ID", func() {
			receipt, err := ingestor.IngestWithID(ctx, "11112222-3333-4444-5555-666677778888", "hello.txt", "hello world")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.DocumentID).To(Equal("11112222-3333-4444-5555-666677778888"))
			Expect(receipt.CollectionName).To(Equal("doc_hello_11112222"))
		})

		It("should overwrite chunks on re-ingest under the same ID", func() {
			const id = "11112222-3333-4444-5555-666677778888"

			first, err := ingestor.IngestWithID(ctx, id, "hello.txt", "hello world")
			Expect(err).NotTo(HaveOccurred())

			second, err := ingestor.IngestWithID(ctx, id, "hello.txt", "hello again")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.CollectionName).To(Equal(first.CollectionName))

			count, err := driver.Count(ctx, first.CollectionName)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})
	})
})
