package sqlitevec_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stackslogger "github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = stackslogger.Nop()
	})

	newDriver := func() *sqlitevec.Driver {
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
		Expect(err).NotTo(HaveOccurred())
		return driver
	}

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver := newDriver()
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("EnsureCollection", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should register the collection", func() {
			err := driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)
			Expect(err).NotTo(HaveOccurred())

			names, err := driver.ListCollections(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(ConsistOf("doc_report_a1b2c3d4"))
		})

		It("should be idempotent", func() {
			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())
			Expect(driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})).To(Succeed())

			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())

			count, err := driver.Count(context.Background(), "doc_report_a1b2c3d4")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("should reject zero dimensions", func() {
			err := driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 0)
			Expect(err).To(HaveOccurred())
		})

		It("should keep collections independent", func() {
			Expect(driver.EnsureCollection(context.Background(), "doc_a_11111111", 4)).To(Succeed())
			Expect(driver.EnsureCollection(context.Background(), "doc_b_22222222", 4)).To(Succeed())

			Expect(driver.Add(context.Background(), "doc_a_11111111", []vector.Chunk{
				{ID: "a-chunk-0", Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})).To(Succeed())

			countA, err := driver.Count(context.Background(), "doc_a_11111111")
			Expect(err).NotTo(HaveOccurred())
			Expect(countA).To(Equal(1))

			countB, err := driver.Count(context.Background(), "doc_b_22222222")
			Expect(err).NotTo(HaveOccurred())
			Expect(countB).To(Equal(0))
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty chunks", func() {
			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should add a single chunk with text and metadata", func() {
			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{
					ID:        "x-chunk-0",
					Text:      "hello world",
					Embedding: []float32{0.1, 0.2, 0.3, 0.4},
					Metadata:  map[string]string{"document_id": "x", "chunk_index": "0"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			chunks, err := driver.Peek(context.Background(), "doc_report_a1b2c3d4", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].ID).To(Equal("x-chunk-0"))
			Expect(chunks[0].Text).To(Equal("hello world"))
			Expect(chunks[0].Metadata).To(HaveKeyWithValue("document_id", "x"))
		})

		It("should add multiple chunks", func() {
			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "x-chunk-1", Text: "b", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "x-chunk-2", Text: "c", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
			})
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background(), "doc_report_a1b2c3d4")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("should update an existing chunk", func() {
			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "old", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})
			Expect(err).NotTo(HaveOccurred())

			err = driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "new", Embedding: []float32{0.9, 0.9, 0.9, 0.9}},
			})
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background(), "doc_report_a1b2c3d4")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			chunks, err := driver.Peek(context.Background(), "doc_report_a1b2c3d4", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks[0].Text).To(Equal("new"))
		})

		It("should reject embeddings with the wrong dimensionality", func() {
			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "bad", Embedding: []float32{0.1, 0.2}},
			})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("should return ErrNotFound for an unknown collection", func() {
			err := driver.Add(context.Background(), "doc_missing_00000000", []vector.Chunk{
				{ID: "x-chunk-0", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())

			err := driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "x-chunk-1", Text: "b", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "x-chunk-2", Text: "c", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
				{ID: "x-chunk-3", Text: "d", Embedding: []float32{0.4, 0.4, 0.4, 0.4}},
				{ID: "x-chunk-4", Text: "e", Embedding: []float32{0.5, 0.5, 0.5, 0.5}},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should return the closest chunks first", func() {
			results, err := driver.Query(context.Background(), "doc_report_a1b2c3d4", []float32{0.3, 0.3, 0.3, 0.3}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("x-chunk-2"))
			Expect(results[0].Text).To(Equal("c"))
			Expect(results[0].Collection).To(Equal("doc_report_a1b2c3d4"))
		})

		It("should respect the topK limit", func() {
			results, err := driver.Query(context.Background(), "doc_report_a1b2c3d4", []float32{0.3, 0.3, 0.3, 0.3}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("should default topK to 10 when zero or negative", func() {
			results, err := driver.Query(context.Background(), "doc_report_a1b2c3d4", []float32{0.3, 0.3, 0.3, 0.3}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
		})

		It("should return distances in ascending order", func() {
			results, err := driver.Query(context.Background(), "doc_report_a1b2c3d4", []float32{0.3, 0.3, 0.3, 0.3}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Distance).To(BeNumerically("<=", results[i].Distance))
			}
		})

		It("should return ErrNotFound for an unknown collection", func() {
			_, err := driver.Query(context.Background(), "doc_missing_00000000", []float32{0.1, 0.1, 0.1, 0.1}, 3)
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("QueryText", func() {
		It("should be unsupported", func() {
			driver := newDriver()
			defer driver.Close()

			_, err := driver.QueryText(context.Background(), "doc_report_a1b2c3d4", "anything", 3)
			Expect(err).To(MatchError(vector.ErrTextQueryUnsupported))
		})
	})

	Describe("DeleteCollection", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())
			Expect(driver.Add(context.Background(), "doc_report_a1b2c3d4", []vector.Chunk{
				{ID: "x-chunk-0", Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should drop the collection and its chunks", func() {
			Expect(driver.DeleteCollection(context.Background(), "doc_report_a1b2c3d4")).To(Succeed())

			names, err := driver.ListCollections(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(BeEmpty())

			_, err = driver.Count(context.Background(), "doc_report_a1b2c3d4")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})

		It("should allow recreating a deleted collection", func() {
			Expect(driver.DeleteCollection(context.Background(), "doc_report_a1b2c3d4")).To(Succeed())
			Expect(driver.EnsureCollection(context.Background(), "doc_report_a1b2c3d4", 4)).To(Succeed())

			count, err := driver.Count(context.Background(), "doc_report_a1b2c3d4")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))
		})

		It("should return ErrNotFound for an unknown collection", func() {
			err := driver.DeleteCollection(context.Background(), "doc_missing_00000000")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("Close", func() {
		It("should close the database connection", func() {
			driver := newDriver()
			Expect(driver.Close()).To(Succeed())
		})
	})
})
