package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	apimcp "github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/ingest/worker"
)

// Server is the API server for ingesting and querying documents.
type Server struct {
	config    Config
	engine    *federation.Engine
	pool      *worker.Pool
	generator generation.Generator
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The engine and pool are injected to
// allow sharing with other components. The generator is optional; without
// it the generate endpoint returns 503.
func NewServer(config Config, engine *federation.Engine, pool *worker.Pool, generator generation.Generator, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("federation engine is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("ingest worker pool is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		engine:    engine,
		pool:      pool,
		generator: generator,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/documents", s.handleIngestDocument)
	app.Get("/v1/documents", s.handleListDocuments)
	app.Get("/v1/documents/:id", s.handleGetDocument)
	app.Delete("/v1/documents/:id", s.handleDeleteDocument)
	app.Post("/v1/query", s.handleQuery)
	app.Post("/v1/collections/:name/query", s.handleQueryCollection)
	app.Post("/v1/generate", s.handleGenerate)

	if config.MCPEnabled {
		mcpServer, err := apimcp.NewServer(apimcp.Config{
			Engine: engine,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp_enabled", s.config.MCPEnabled,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
