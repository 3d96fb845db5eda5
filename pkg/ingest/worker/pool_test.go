package worker_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/ingest/worker"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

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

// blockingEmbedder parks EmbedBatch until released, pinning the worker.
type blockingEmbedder struct {
	stubEmbedder
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.stubEmbedder.EmbedBatch(ctx, texts)
}

var _ = Describe("Pool", func() {
	var (
		driver   *inmemory.Driver
		ingestor *ingest.Ingestor
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver(logger.Nop())

		var err error
		ingestor, err = ingest.NewIngestor(&ingest.Config{
			Driver:    driver,
			Embedder:  stubEmbedder{},
			ChunkSize: 5,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewPool", func() {
		It("should require an ingestor", func() {
			_, err := worker.NewPool(&worker.Config{Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Enqueue", func() {
		It("should process queued documents before Close returns", func() {
			pool, err := worker.NewPool(&worker.Config{
				Ingestor:   ingestor,
				NumWorkers: 2,
				Logger:     logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			ok := pool.Enqueue(worker.Job{
				DocumentID:   "11112222-3333-4444-5555-666677778888",
				OriginalName: "hello.txt",
				Text:         "hello world",
			})
			Expect(ok).To(BeTrue())

			pool.Close()

			names, err := driver.ListCollections(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(ConsistOf("doc_hello_11112222"))
		})

		It("should drop jobs when the queue is full", func() {
			blocking := &blockingEmbedder{
				started: make(chan struct{}),
				release: make(chan struct{}),
			}

			slowIngestor, err := ingest.NewIngestor(&ingest.Config{
				Driver:    driver,
				Embedder:  blocking,
				ChunkSize: 5,
				Logger:    logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			pool, err := worker.NewPool(&worker.Config{
				Ingestor:   slowIngestor,
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			job := worker.Job{
				DocumentID:   "11112222-3333-4444-5555-666677778888",
				OriginalName: "hello.txt",
				Text:         "hello world",
			}

			// First job occupies the single worker.
			Expect(pool.Enqueue(job)).To(BeTrue())
			Eventually(blocking.started).Should(BeClosed())

			// Second job fills the single queue slot; the third has
			// nowhere to go.
			Expect(pool.Enqueue(job)).To(BeTrue())
			Expect(pool.Enqueue(job)).To(BeFalse())

			close(blocking.release)
			pool.Close()
		})
	})
})
