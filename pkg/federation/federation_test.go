package federation_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

// unitEmbedder maps known texts to fixed unit vectors so cosine distances
// are predictable.
type unitEmbedder struct {
	vectors map[string][]float32
}

func (u *unitEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := u.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (u *unitEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = u.Embed(ctx, text)
	}
	return vectors, nil
}

func (u *unitEmbedder) Dimensions() uint { return 3 }
func (u *unitEmbedder) Name() string     { return "unit" }
func (u *unitEmbedder) Close() error     { return nil }

// faultyDriver delegates to an inner driver but fails queries against the
// named collections.
type faultyDriver struct {
	vector.Driver
	failing map[string]bool
}

func (f *faultyDriver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if f.failing[collection] {
		return nil, errors.New("shard offline")
	}
	return f.Driver.Query(ctx, collection, embedding, topK)
}

// seed writes one chunk with a given embedding into a collection.
func seed(driver vector.Driver, collection, chunkID string, embedding []float32) {
	GinkgoHelper()

	ctx := context.Background()
	Expect(driver.EnsureCollection(ctx, collection, 3)).To(Succeed())
	Expect(driver.Add(ctx, collection, []vector.Chunk{
		{
			ID:        chunkID,
			Text:      "text for " + chunkID,
			Embedding: embedding,
			Metadata:  map[string]string{"document_id": chunkID},
		},
	})).To(Succeed())
}

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		driver   *inmemory.Driver
		embedder *unitEmbedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(logger.Nop())
		embedder = &unitEmbedder{vectors: map[string][]float32{}}
	})

	newEngine := func(d vector.Driver) *federation.Engine {
		engine, err := federation.NewEngine(&federation.Config{
			Driver:   d,
			Embedder: embedder,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return engine
	}

	Describe("NewEngine", func() {
		It("should require a driver", func() {
			_, err := federation.NewEngine(&federation.Config{Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})

		It("should require an embedder in vector mode", func() {
			_, err := federation.NewEngine(&federation.Config{Driver: driver})
			Expect(err).To(HaveOccurred())
		})

		It("should not require an embedder in text mode", func() {
			_, err := federation.NewEngine(&federation.Config{
				Driver: driver,
				Mode:   federation.ModeText,
				Logger: logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Query", func() {
		It("should reject a blank query", func() {
			engine := newEngine(driver)
			_, err := engine.Query(ctx, "   ", 5)
			Expect(err).To(MatchError(federation.ErrEmptyQuery))
		})

		It("should return empty results when no document collections exist", func() {
			engine := newEngine(driver)

			// A non-document collection must not be searched.
			seed(driver, "scratch", "s-1", []float32{1, 0, 0})

			results, err := engine.Query(ctx, "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should merge results across collections nearest first", func() {
			// Query vector is (1,0,0); distances follow from the angle.
			seed(driver, "doc_alpha_11111111", "alpha-chunk", []float32{1, 0, 0})
			seed(driver, "doc_beta_22222222", "beta-chunk", []float32{0, 1, 0})
			seed(driver, "doc_gamma_33333333", "gamma-chunk", []float32{1, 1, 0})

			engine := newEngine(driver)

			results, err := engine.Query(ctx, "anything", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("alpha-chunk"))
			Expect(results[1].ID).To(Equal("gamma-chunk"))
			Expect(results[2].ID).To(Equal("beta-chunk"))

			// Each result names its source collection.
			Expect(results[0].Collection).To(Equal("doc_alpha_11111111"))
		})

		It("should truncate to the limit after merging", func() {
			seed(driver, "doc_alpha_11111111", "alpha-chunk", []float32{1, 0, 0})
			seed(driver, "doc_beta_22222222", "beta-chunk", []float32{0, 1, 0})
			seed(driver, "doc_gamma_33333333", "gamma-chunk", []float32{1, 1, 0})

			engine := newEngine(driver)

			results, err := engine.Query(ctx, "anything", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("alpha-chunk"))
			Expect(results[1].ID).To(Equal("gamma-chunk"))
		})

		It("should survive partial collection failures", func() {
			seed(driver, "doc_alpha_11111111", "alpha-chunk", []float32{0, 1, 0})
			seed(driver, "doc_beta_22222222", "beta-chunk", []float32{1, 1, 0})
			seed(driver, "doc_broken_33333333", "broken-chunk", []float32{1, 0, 0})

			faulty := &faultyDriver{
				Driver:  driver,
				failing: map[string]bool{"doc_broken_33333333": true},
			}
			engine := newEngine(faulty)

			results, err := engine.Query(ctx, "anything", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("beta-chunk"))
			Expect(results[1].ID).To(Equal("alpha-chunk"))
		})

		It("should fail when every collection fails", func() {
			seed(driver, "doc_alpha_11111111", "alpha-chunk", []float32{1, 0, 0})
			seed(driver, "doc_beta_22222222", "beta-chunk", []float32{0, 1, 0})

			faulty := &faultyDriver{
				Driver: driver,
				failing: map[string]bool{
					"doc_alpha_11111111": true,
					"doc_beta_22222222":  true,
				},
			}
			engine := newEngine(faulty)

			_, err := engine.Query(ctx, "anything", 5)
			Expect(err).To(MatchError(federation.ErrQueryUnavailable))
		})

		It("should drop duplicate chunk IDs keeping the closest", func() {
			seed(driver, "doc_alpha_11111111", "shared-chunk", []float32{1, 0, 0})
			seed(driver, "doc_beta_22222222", "shared-chunk", []float32{0, 1, 0})

			engine := newEngine(driver)

			results, err := engine.Query(ctx, "anything", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Collection).To(Equal("doc_alpha_11111111"))
		})

		It("should handle many collections with bounded concurrency", func() {
			for i := 0; i < 40; i++ {
				name := fmt.Sprintf("doc_file%02d_%08d", i, i)
				seed(driver, name, fmt.Sprintf("chunk-%02d", i), []float32{1, float32(i) * 0.01, 0})
			}

			engine, err := federation.NewEngine(&federation.Config{
				Driver:      driver,
				Embedder:    embedder,
				MaxInFlight: 3,
				Logger:      logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			results, err := engine.Query(ctx, "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
			Expect(results[0].ID).To(Equal("chunk-00"))
		})
	})

	Describe("QueryCollection", func() {
		It("should search only the named collection", func() {
			seed(driver, "doc_alpha_11111111", "alpha-chunk", []float32{0, 1, 0})
			seed(driver, "doc_beta_22222222", "beta-chunk", []float32{1, 0, 0})

			engine := newEngine(driver)

			results, err := engine.QueryCollection(ctx, "doc_alpha_11111111", "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("alpha-chunk"))
		})

		It("should reject a blank query", func() {
			engine := newEngine(driver)
			_, err := engine.QueryCollection(ctx, "doc_alpha_11111111", "", 5)
			Expect(err).To(MatchError(federation.ErrEmptyQuery))
		})
	})
})
