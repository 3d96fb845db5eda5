// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/config"
	embeddingutils "github.com/papercomputeco/stacks/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/stacks/pkg/eventstream/utils"
	"github.com/papercomputeco/stacks/pkg/federation"
	"github.com/papercomputeco/stacks/pkg/generation"
	generationutils "github.com/papercomputeco/stacks/pkg/generation/utils"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/ingest/worker"
	"github.com/papercomputeco/stacks/pkg/logger"
	vectorutils "github.com/papercomputeco/stacks/pkg/vector/utils"
)

// serveFlagKeys are the registry flags the serve command exposes.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStorePath,
	config.FlagEmbeddingProvs,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagGenerationProvs,
	config.FlagGenerationTgt,
	config.FlagGenerationModel,
	config.FlagChunkSize,
	config.FlagWorkers,
	config.FlagMaxInFlight,
	config.FlagQueryMode,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
}

type ServeCommander struct {
	// flag targets; final values come from the viper precedence chain
	apiListen       string
	vectorProvider  string
	vectorTarget    string
	vectorPath      string
	embedProviders  string
	embedTarget     string
	embedModel      string
	embedDims       uint
	genProviders    string
	genTarget       string
	genModel        string
	chunkSize       int
	workers         int
	maxInFlight     int
	queryMode       string
	eventsProvider  string
	eventsBrokers   string
	generateEnabled bool

	cfg    *config.Config
	debug  bool
	logger *slog.Logger
}

const serveLongDesc string = `Run the Stacks API server.

The server exposes document ingestion, federated query, grounded
generation, and (when enabled) an MCP endpoint at /mcp on the same
listener.

Configuration precedence: flags > STACKS_* environment variables >
.stacks/config.toml > defaults.

Examples:
  stacks serve
  stacks serve --api-listen :9090 --vector-store-provider qdrant --vector-store-target localhost:6334
  stacks serve --embedding-providers gemini,openai --query-mode vector`

const serveShortDesc string = "Run the Stacks API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cmder.cfg = config.ConfigFromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			noGenerate, err := cmd.Flags().GetBool("no-generate")
			if err != nil {
				return fmt.Errorf("could not get no-generate flag: %v", err)
			}
			cmder.generateEnabled = !noGenerate
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProvs, &cmder.embedProviders)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenerationProvs, &cmder.genProviders)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenerationTgt, &cmder.genTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenerationModel, &cmder.genModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxInFlight, &cmder.maxInFlight)
	config.AddStringFlag(cmd, config.Flags, config.FlagQueryMode, &cmder.queryMode)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)

	cmd.Flags().Bool("no-generate", false, "Disable the grounded generation endpoint")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithJSON(true))
	cfg := c.cfg

	driver, err := vectorutils.NewDriver(&vectorutils.NewDriverOpts{
		Provider: cfg.VectorStore.Provider,
		Target:   cfg.VectorStore.Target,
		Path:     cfg.VectorStore.Path,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer driver.Close()

	c.logger.Info("using vector store",
		"provider", cfg.VectorStore.Provider,
		"target", cfg.VectorStore.Target,
		"path", cfg.VectorStore.Path,
	)

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		Providers:    cfg.Embedding.Providers,
		Target:       cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		OpenAIAPIKey: cfg.Embedding.OpenAIAPIKey,
		GeminiAPIKey: cfg.Embedding.GeminiAPIKey,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	c.logger.Info("using embeddings",
		"providers", cfg.Embedding.Providers,
		"model", cfg.Embedding.Model,
		"dimensions", cfg.Embedding.Dimensions,
	)

	generator, err := c.createGenerator()
	if err != nil {
		return err
	}
	if generator != nil {
		defer generator.Close()
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Provider: cfg.Events.Provider,
		Brokers:  cfg.Events.Brokers,
		Topic:    cfg.Events.Topic,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	ingestor, err := ingest.NewIngestor(&ingest.Config{
		Driver:        driver,
		Embedder:      embedder,
		Publisher:     publisher,
		ChunkSize:     cfg.Ingest.ChunkSize,
		MinTextLength: cfg.Ingest.MinTextLength,
		Logger:        c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Ingestor:   ingestor,
		NumWorkers: uint(cfg.Ingest.Workers),
		QueueSize:  uint(cfg.Ingest.QueueSize),
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	engine, err := federation.NewEngine(&federation.Config{
		Driver:       driver,
		Embedder:     embedder,
		Mode:         federation.Mode(cfg.Query.Mode),
		MaxInFlight:  cfg.Query.MaxInFlight,
		ShardTimeout: time.Duration(cfg.Query.ShardTimeoutMS) * time.Millisecond,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating federation engine: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		MCPEnabled: cfg.API.MCPEnabled,
	}
	server, err := api.NewServer(apiConfig, engine, pool, generator, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// createGenerator builds the generation chain, or returns nil when grounded
// generation is disabled or unconfigured.
func (c *ServeCommander) createGenerator() (generation.Generator, error) {
	if !c.generateEnabled || c.cfg.Generation.Providers == "" {
		c.logger.Info("grounded generation disabled")
		return nil, nil
	}

	generator, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{
		Providers:    c.cfg.Generation.Providers,
		Target:       c.cfg.Generation.Target,
		Model:        c.cfg.Generation.Model,
		OpenAIAPIKey: c.cfg.Generation.OpenAIAPIKey,
		GeminiAPIKey: c.cfg.Generation.GeminiAPIKey,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	c.logger.Info("using generation",
		"providers", c.cfg.Generation.Providers,
		"model", c.cfg.Generation.Model,
	)
	return generator, nil
}
