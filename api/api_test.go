package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/ingest/worker"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

// testEmbedder returns fixed-width vectors keyed on text length.
type testEmbedder struct{}

func (testEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (t testEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = t.Embed(ctx, text)
	}
	return vectors, nil
}

func (testEmbedder) Dimensions() uint { return 3 }
func (testEmbedder) Name() string     { return "test" }
func (testEmbedder) Close() error     { return nil }

// testGenerator echoes a canned answer.
type testGenerator struct {
	answer string
	err    error
}

func (t *testGenerator) Generate(_ context.Context, _ generation.Request) (string, error) {
	return t.answer, t.err
}

func (t *testGenerator) Name() string { return "test" }
func (t *testGenerator) Close() error { return nil }

func jsonRequest(method, path string, body any) *http.Request {
	GinkgoHelper()

	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, out any) {
	GinkgoHelper()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, out)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		engine    *federation.Engine
		ingestor  *ingest.Ingestor
		pool      *worker.Pool
		generator *testGenerator
		server    *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(logger.Nop())

		var err error
		engine, err = federation.NewEngine(&federation.Config{
			Driver:   driver,
			Embedder: testEmbedder{},
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		ingestor, err = ingest.NewIngestor(&ingest.Config{
			Driver:    driver,
			Embedder:  testEmbedder{},
			ChunkSize: 5,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		pool, err = worker.NewPool(&worker.Config{
			Ingestor: ingestor,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		generator = &testGenerator{answer: "a grounded answer"}

		server, err = NewServer(Config{ListenAddr: ":0"}, engine, pool, generator, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		pool.Close()
	})

	Describe("NewServer", func() {
		It("requires an engine", func() {
			_, err := NewServer(Config{}, nil, pool, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("requires a pool", func() {
			_, err := NewServer(Config{}, engine, nil, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("mounts the MCP endpoint when enabled", func() {
			mcpServer, err := NewServer(Config{MCPEnabled: true}, engine, pool, nil, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp, err := mcpServer.app.Test(httptest.NewRequest("GET", "/mcp", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).NotTo(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body string
			decodeBody(resp, &body)
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("POST /v1/documents", func() {
		It("queues the document and returns 202 with a document ID", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/documents", IngestRequest{
				Name: "hello.txt",
				Text: "hello world",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			var body IngestResponse
			decodeBody(resp, &body)
			Expect(body.DocumentID).NotTo(BeEmpty())
			Expect(body.Status).To(Equal("queued"))

			Eventually(func() int {
				docs, err := engine.ListDocuments(ctx)
				if err != nil {
					return 0
				}
				return len(docs)
			}).Should(Equal(1))
		})

		It("rejects a missing name", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/documents", IngestRequest{
				Text: "hello world",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects missing text", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/documents", IngestRequest{
				Name: "hello.txt",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("document catalog", func() {
		var documentID string

		BeforeEach(func() {
			receipt, err := ingestor.Ingest(ctx, "report.txt", "the report body text")
			Expect(err).NotTo(HaveOccurred())
			documentID = receipt.DocumentID
		})

		It("lists documents", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/v1/documents", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Count     int                   `json:"count"`
				Documents []federation.Document `json:"documents"`
			}
			decodeBody(resp, &body)
			Expect(body.Count).To(Equal(1))
			Expect(body.Documents[0].DocumentID).To(Equal(documentID))
		})

		It("gets a document by ID", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/v1/documents/"+documentID, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var doc federation.Document
			decodeBody(resp, &doc)
			Expect(doc.OriginalName).To(Equal("report.txt"))
		})

		It("returns 404 for unknown documents", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/v1/documents/99999999-0000-0000-0000-000000000000", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("deletes a document", func() {
			resp, err := server.app.Test(httptest.NewRequest("DELETE", "/v1/documents/"+documentID, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, err = server.app.Test(httptest.NewRequest("GET", "/v1/documents/"+documentID, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /v1/query", func() {
		BeforeEach(func() {
			_, err := ingestor.Ingest(ctx, "report.txt", "the report body text")
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns ranked results", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/query", QueryRequest{
				Query: "report",
				Limit: 5,
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body QueryResponse
			decodeBody(resp, &body)
			Expect(body.Query).To(Equal("report"))
			Expect(body.Count).To(BeNumerically(">", 0))
		})

		It("rejects a blank query", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/query", QueryRequest{Query: "  "}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /v1/collections/:name/query", func() {
		var collectionName string

		BeforeEach(func() {
			receipt, err := ingestor.Ingest(ctx, "report.txt", "the report body text")
			Expect(err).NotTo(HaveOccurred())
			collectionName = receipt.CollectionName
		})

		It("queries only the named collection", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/collections/"+collectionName+"/query", QueryRequest{
				Query: "report",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body QueryResponse
			decodeBody(resp, &body)
			for _, result := range body.Results {
				Expect(result.Collection).To(Equal(collectionName))
			}
		})

		It("returns 404 for unknown collections", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/collections/doc_missing_00000000/query", QueryRequest{
				Query: "report",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /v1/generate", func() {
		BeforeEach(func() {
			_, err := ingestor.Ingest(ctx, "report.txt", "the report body text")
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns a grounded answer with sources", func() {
			resp, err := server.app.Test(jsonRequest("POST", "/v1/generate", GenerateRequest{
				Prompt: "summarize the report",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body GenerateResponse
			decodeBody(resp, &body)
			Expect(body.Answer).To(Equal("a grounded answer"))
			Expect(body.Sources).NotTo(BeEmpty())
		})

		It("returns 502 when generation fails", func() {
			generator.err = errors.New("provider down")

			resp, err := server.app.Test(jsonRequest("POST", "/v1/generate", GenerateRequest{
				Prompt: "summarize the report",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("returns 503 without a generator", func() {
			bare, err := NewServer(Config{}, engine, pool, nil, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp, err := bare.app.Test(jsonRequest("POST", "/v1/generate", GenerateRequest{
				Prompt: "summarize the report",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
