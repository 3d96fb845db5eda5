package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/ingest/worker"
	"github.com/papercomputeco/stacks/pkg/vector"
)

// IngestRequest is the body for document uploads.
type IngestRequest struct {
	// Name is the original document name, used to derive the collection
	// name.
	Name string `json:"name"`

	// Text is the raw document body.
	Text string `json:"text"`
}

// IngestResponse acknowledges an accepted upload. The document is chunked
// and embedded in the background.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// QueryRequest is the body for query endpoints.
type QueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// QueryResponse carries ranked results for a query.
type QueryResponse struct {
	Query   string               `json:"query"`
	Results []vector.QueryResult `json:"results"`
	Count   int                  `json:"count"`
}

// GenerateRequest is the body for grounded generation.
type GenerateRequest struct {
	Prompt string `json:"prompt"`

	// Limit bounds how many retrieved chunks ground the answer.
	Limit int `json:"limit,omitempty"`
}

// GenerateResponse carries a grounded answer and its sources.
type GenerateResponse struct {
	Answer  string               `json:"answer"`
	Sources []vector.QueryResult `json:"sources"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngestDocument accepts a document and queues it for background
// ingestion. Returns 202 with the assigned document ID.
func (s *Server) handleIngestDocument(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	documentID := uuid.New().String()

	queued := s.pool.Enqueue(worker.Job{
		DocumentID:   documentID,
		OriginalName: req.Name,
		Text:         req.Text,
	})
	if !queued {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "ingest queue is full"})
	}

	return c.Status(fiber.StatusAccepted).JSON(IngestResponse{
		DocumentID: documentID,
		Status:     "queued",
	})
}

// handleListDocuments returns every ingested document.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	docs, err := s.engine.ListDocuments(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list documents"})
	}

	return c.JSON(map[string]any{
		"count":     len(docs),
		"documents": docs,
	})
}

// handleGetDocument returns a single document by its ID.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	id := c.Params("id")

	doc, err := s.engine.GetDocument(c.Context(), id)
	if err != nil {
		if errors.Is(err, federation.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get document"})
	}

	return c.JSON(doc)
}

// handleDeleteDocument removes a document and its collection.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := s.engine.DeleteDocument(c.Context(), id); err != nil {
		if errors.Is(err, federation.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete document"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleQuery runs a federated query across every document.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	results, err := s.engine.Query(c.Context(), req.Query, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, federation.ErrEmptyQuery):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
		case errors.Is(err, federation.ErrQueryUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(QueryResponse{
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

// handleQueryCollection runs a query against a single named collection.
func (s *Server) handleQueryCollection(c *fiber.Ctx) error {
	name := c.Params("name")

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	results, err := s.engine.QueryCollection(c.Context(), name, req.Query, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, federation.ErrEmptyQuery):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
		case errors.Is(err, vector.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "collection not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(QueryResponse{
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

// handleGenerate answers a prompt grounded in retrieved chunks.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	if s.generator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "generation is not configured"})
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	sources, err := s.engine.Query(c.Context(), req.Prompt, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, federation.ErrEmptyQuery):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "prompt is required"})
		case errors.Is(err, federation.ErrQueryUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	passages := make([]string, len(sources))
	for i, source := range sources {
		passages[i] = source.Text
	}

	answer, err := s.generator.Generate(c.Context(), generation.Request{
		Prompt:  req.Prompt,
		Context: passages,
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(GenerateResponse{
		Answer:  answer,
		Sources: sources,
	})
}
